package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics records application metrics. Tags become labels.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag is a metric label.
type Tag struct {
	Key   string
	Value string
}

// T builds a Tag.
func T(key, value string) Tag { return Tag{Key: key, Value: value} }

// Metric names.
const (
	MetricCommandsTotal     = "aromabox_commands_total"
	MetricCommandDuration   = "aromabox_command_duration_seconds"
	MetricOilChanges        = "aromabox_oil_changes_total"
	MetricPlanChanges       = "aromabox_plan_change_transitions_total"
	MetricPaymentsTotal     = "aromabox_payments_total"
	MetricOutboxPublished   = "aromabox_outbox_published_total"
	MetricOutboxFailed      = "aromabox_outbox_failed_total"
	MetricOutboxDeadLetters = "aromabox_outbox_dead_letters_total"
	MetricOutboxLagSeconds  = "aromabox_outbox_lag_seconds"
)

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)         {}
func (NoopMetrics) Gauge(string, float64, ...Tag)         {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// InMemoryMetrics keeps values in maps; used by tests and the CLI.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	m.counters[seriesKey(name, tags)] += value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	m.gauges[seriesKey(name, tags)] = value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Timing(name string, d time.Duration, tags ...Tag) {
	m.mu.Lock()
	key := seriesKey(name, tags)
	m.timings[key] = append(m.timings[key], d)
	m.mu.Unlock()
}

// CounterValue returns a counter. Tag order does not matter.
func (m *InMemoryMetrics) CounterValue(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[seriesKey(name, tags)]
}

func (m *InMemoryMetrics) GaugeValue(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[seriesKey(name, tags)]
}

func (m *InMemoryMetrics) Timings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]time.Duration(nil), m.timings[seriesKey(name, tags)]...)
}

func seriesKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	sorted := sortedTags(tags)
	var b strings.Builder
	b.WriteString(name)
	for _, t := range sorted {
		b.WriteString("|")
		b.WriteString(t.Key)
		b.WriteString("=")
		b.WriteString(t.Value)
	}
	return b.String()
}

func sortedTags(tags []Tag) []Tag {
	sorted := append([]Tag(nil), tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

// ObserveCommand records the outcome and latency of a command. outcome is
// typically "ok" or an error kind.
func ObserveCommand(m Metrics, command string, start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.Counter(MetricCommandsTotal, 1, T("command", command), T("outcome", outcome))
	m.Timing(MetricCommandDuration, time.Since(start), T("command", command))
}
