package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEditPolicy_Evaluate(t *testing.T) {
	policy := EditPolicy{EditDays: 7, Location: time.UTC}
	april := NewMonthKey(2025, time.April)
	start := april.Start(time.UTC)
	deadline := policy.Deadline(april)

	assert.Equal(t, time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC), deadline)

	tests := []struct {
		name      string
		now       time.Time
		status    SelectionStatus
		canModify bool
		days      int
	}{
		{"ten days before the month", start.AddDate(0, 0, -10), StatusUpcoming, true, 3},
		{"two days after the cutoff", deadline.AddDate(0, 0, 2), StatusLocked, false, 0},
		{"exactly at the cutoff", deadline, StatusLocked, false, 0},
		{"just before the cutoff", deadline.Add(-time.Minute), StatusUpcoming, true, 1},
		{"partial day rounds up", deadline.Add(-36 * time.Hour), StatusUpcoming, true, 2},
		{"first instant of the month", start, StatusCurrent, false, 0},
		{"middle of the month", start.AddDate(0, 0, 14), StatusCurrent, false, 0},
		{"first instant of next month", april.End(time.UTC), StatusCompleted, false, 0},
		{"long after", start.AddDate(1, 0, 0), StatusCompleted, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := policy.Evaluate(april, tt.now)
			assert.Equal(t, tt.status, state.Status)
			assert.Equal(t, tt.canModify, state.CanModify)
			assert.Equal(t, tt.days, state.DaysUntilDeadline)
			assert.Equal(t, deadline, state.Deadline)
			assert.True(t, state.Status.IsValid())
		})
	}
}

func TestEditPolicy_ZeroEditDays(t *testing.T) {
	policy := EditPolicy{EditDays: 0}
	may := NewMonthKey(2025, time.May)

	state := policy.Evaluate(may, may.Start(time.UTC).Add(-time.Hour))
	assert.Equal(t, StatusUpcoming, state.Status)
	assert.Equal(t, 1, state.DaysUntilDeadline)
}

func TestEditPolicy_NextEditableMonth(t *testing.T) {
	policy := DefaultEditPolicy()

	// March 10: April's deadline (March 25) is still ahead.
	assert.Equal(t, NewMonthKey(2025, time.April), policy.NextEditableMonth(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))

	// March 28: April is locked, so the cutover moves to May.
	assert.Equal(t, NewMonthKey(2025, time.May), policy.NextEditableMonth(time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)))

	// Year boundary.
	assert.Equal(t, NewMonthKey(2026, time.February), policy.NextEditableMonth(time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)))
}

func TestSelectionStatus_IsValid(t *testing.T) {
	assert.False(t, SelectionStatus("pending").IsValid())
	assert.True(t, StatusLocked.IsValid())
}
