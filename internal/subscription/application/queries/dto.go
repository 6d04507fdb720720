package queries

import (
	"time"

	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// SubscriptionSummaryDTO is the headline view of an account's subscription.
type SubscriptionSummaryDTO struct {
	SubscriptionID  uuid.UUID        `json:"subscription_id"`
	PlanID          string           `json:"plan_id"`
	PlanName        string           `json:"plan_name"`
	DiscountPercent int              `json:"discount_percent"`
	DeviceCount     int              `json:"device_count"`
	CompletedMonths int              `json:"completed_months"`
	TotalMonths     int              `json:"total_months"`
	ProgressPercent int              `json:"progress_percent"`
	StartMonth      domain.MonthKey  `json:"start_month"`
	EndMonth        domain.MonthKey  `json:"end_month"`
	StartDate       time.Time        `json:"start_date"`
	EndDate         time.Time        `json:"end_date"`
	CurrentMonth    *domain.MonthKey `json:"current_month,omitempty"`
	Status          string           `json:"status"`
	Version         int              `json:"version"`

	// Set after a plan change. EarlierCompletedMonths counts months
	// delivered by superseded subscriptions before their cutover.
	PreviousSubscriptionID *uuid.UUID `json:"previous_subscription_id,omitempty"`
	EarlierCompletedMonths int        `json:"earlier_completed_months"`
}

// OilDTO is the resolved catalog entry for a selection.
type OilDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// DeviceSelectionDTO joins a device, its type and its chosen oil.
type DeviceSelectionDTO struct {
	DeviceID   uuid.UUID `json:"device_id"`
	DeviceName string    `json:"device_name"`
	TypeID     string    `json:"type_id"`
	TypeName   string    `json:"type_name"`
	CapacityML int       `json:"capacity_ml"`
	Price      int64     `json:"price"`
	Oil        *OilDTO   `json:"oil,omitempty"`
}

// MonthlySelectionDTO is one month as the customer sees it.
type MonthlySelectionDTO struct {
	SubscriptionID    uuid.UUID              `json:"subscription_id"`
	Month             domain.MonthKey        `json:"month"`
	Status            domain.SelectionStatus `json:"status"`
	CanModify         bool                   `json:"can_modify"`
	DaysUntilDeadline int                    `json:"days_until_deadline"`
	Deadline          time.Time              `json:"deadline"`
	Devices           []DeviceSelectionDTO   `json:"devices"`
	GrossTotal        int64                  `json:"gross_total"`
	DiscountedTotal   int64                  `json:"discounted_total"`
	DiscountPercent   int                    `json:"discount_percent"`
	Version           int                    `json:"version"`
}

// TimelineDTO lists every month's state at one instant.
type TimelineDTO struct {
	SubscriptionID uuid.UUID           `json:"subscription_id"`
	PlanID         string              `json:"plan_id"`
	Months         []domain.MonthState `json:"months"`
	Version        int                 `json:"version"`
}
