package domain

import (
	"math"
	"time"
)

// SelectionStatus is the derived lifecycle state of a month.
type SelectionStatus string

const (
	StatusCompleted SelectionStatus = "completed"
	StatusCurrent   SelectionStatus = "current"
	StatusUpcoming  SelectionStatus = "upcoming"
	StatusLocked    SelectionStatus = "locked"
)

func (s SelectionStatus) IsValid() bool {
	switch s {
	case StatusCompleted, StatusCurrent, StatusUpcoming, StatusLocked:
		return true
	default:
		return false
	}
}

// DefaultEditDays is how many days before a month begins its selections freeze.
const DefaultEditDays = 7

// EditPolicy decides when a month's selections stop being editable.
type EditPolicy struct {
	EditDays int
	Location *time.Location
}

// DefaultEditPolicy freezes selections seven days before the month, in UTC.
func DefaultEditPolicy() EditPolicy {
	return EditPolicy{EditDays: DefaultEditDays, Location: time.UTC}
}

func (p EditPolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Deadline is the instant after which month becomes locked.
func (p EditPolicy) Deadline(month MonthKey) time.Time {
	return month.Start(p.location()).AddDate(0, 0, -p.EditDays)
}

// MonthState is a month's status as observed at one instant.
type MonthState struct {
	Month             MonthKey        `json:"month"`
	Status            SelectionStatus `json:"status"`
	CanModify         bool            `json:"can_modify"`
	DaysUntilDeadline int             `json:"days_until_deadline"`
	Deadline          time.Time       `json:"deadline"`
}

// Evaluate derives a month's status at now. The current month is never
// modifiable; its delivery is already in progress.
func (p EditPolicy) Evaluate(month MonthKey, now time.Time) MonthState {
	loc := p.location()
	start, end := month.Start(loc), month.End(loc)
	deadline := p.Deadline(month)

	state := MonthState{Month: month, Deadline: deadline}
	switch {
	case !now.Before(end):
		state.Status = StatusCompleted
	case !now.Before(start):
		state.Status = StatusCurrent
	case now.Before(deadline):
		state.Status = StatusUpcoming
		state.CanModify = true
		state.DaysUntilDeadline = daysBetween(now, deadline)
	default:
		state.Status = StatusLocked
	}
	return state
}

// NextEditableMonth is the first month after the one containing now whose
// deadline has not passed. Plan changes take effect there.
func (p EditPolicy) NextEditableMonth(now time.Time) MonthKey {
	month := MonthOf(now, p.location()).Next()
	for !now.Before(p.Deadline(month)) {
		month = month.Next()
	}
	return month
}

func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
