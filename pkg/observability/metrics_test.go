package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricOilChanges, 1, T("month", "2025-04"), T("outcome", "ok"))
	m.Counter(MetricOilChanges, 2, T("outcome", "ok"), T("month", "2025-04"))
	m.Gauge(MetricOutboxLagSeconds, 1.5)
	m.Timing(MetricCommandDuration, time.Second, T("command", "set_oil"))

	assert.Equal(t, int64(3), m.CounterValue(MetricOilChanges, T("outcome", "ok"), T("month", "2025-04")))
	assert.Equal(t, int64(0), m.CounterValue(MetricOilChanges))
	assert.Equal(t, 1.5, m.GaugeValue(MetricOutboxLagSeconds))
	assert.Equal(t, []time.Duration{time.Second}, m.Timings(MetricCommandDuration, T("command", "set_oil")))
}

func TestObserveCommand(t *testing.T) {
	m := NewInMemoryMetrics()
	ObserveCommand(m, "set_oil", time.Now(), "ok")
	ObserveCommand(m, "set_oil", time.Now(), "invalid_state")
	ObserveCommand(nil, "set_oil", time.Now(), "ok")

	assert.Equal(t, int64(1), m.CounterValue(MetricCommandsTotal, T("command", "set_oil"), T("outcome", "ok")))
	assert.Equal(t, int64(1), m.CounterValue(MetricCommandsTotal, T("command", "set_oil"), T("outcome", "invalid_state")))
	assert.Len(t, m.Timings(MetricCommandDuration, T("command", "set_oil")), 2)
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	p := NewPrometheusMetrics()
	p.Counter(MetricCommandsTotal, 2, T("command", "set_oil"), T("outcome", "ok"))
	p.Gauge(MetricOutboxLagSeconds, 3)
	p.Timing(MetricCommandDuration, 20*time.Millisecond, T("command", "set_oil"))

	// mismatched label set is dropped, not a panic
	assert.NotPanics(t, func() { p.Counter(MetricCommandsTotal, 1, T("other", "x")) })

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `aromabox_commands_total{command="set_oil",outcome="ok"} 2`)
	assert.Contains(t, text, "aromabox_outbox_lag_seconds 3")
	assert.Contains(t, text, "aromabox_command_duration_seconds_count")
}

func TestHealth(t *testing.T) {
	h := NewHealth()
	h.Register("database", PingCheck(func(context.Context) error { return nil }, HealthStatusUnhealthy))
	h.Register("redis", PingCheck(func(context.Context) error { return errors.New("refused") }, HealthStatusDegraded))

	report := h.Run(context.Background())
	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.Equal(t, "refused", report.Checks["redis"].Message)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Register("rabbitmq", PingCheck(func(context.Context) error { return errors.New("down") }, HealthStatusUnhealthy))
	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
