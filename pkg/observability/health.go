package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the state of one dependency.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Check probes a dependency.
type Check func(ctx context.Context) CheckResult

// PingCheck adapts a ping function. Failures report failStatus, so optional
// dependencies such as a cache can degrade instead of failing readiness.
func PingCheck(ping func(ctx context.Context) error, failStatus HealthStatus) Check {
	return func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{Status: failStatus, Message: err.Error()}
		}
		return CheckResult{Status: HealthStatusHealthy}
	}
}

// Health runs named checks concurrently.
type Health struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewHealth() *Health {
	return &Health{checks: make(map[string]Check)}
}

func (h *Health) Register(name string, check Check) {
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

// Report is the aggregated health.
type Report struct {
	Status    HealthStatus           `json:"status"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Run executes every check and folds the worst status into the report.
func (h *Health) Run(ctx context.Context) Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	results := make([]CheckResult, len(names))
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = checks[i](ctx)
		}(i)
	}
	wg.Wait()

	report := Report{Status: HealthStatusHealthy, CheckedAt: time.Now().UTC(), Checks: make(map[string]CheckResult, len(names))}
	for i, name := range names {
		report.Checks[name] = results[i]
		switch results[i].Status {
		case HealthStatusUnhealthy:
			report.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if report.Status == HealthStatusHealthy {
				report.Status = HealthStatusDegraded
			}
		}
	}
	return report
}

// Handler serves the report as JSON; unhealthy maps to 503.
func (h *Health) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := h.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}
