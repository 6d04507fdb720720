package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Device is a physical diffuser registered on the account.
type Device struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	TypeID string    `json:"type_id"`
}

func (d Device) validate() error {
	if d.ID == uuid.Nil {
		return ErrInvalidSubscription.WithDetails("device id is empty")
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidSubscription.WithDetails("device %s has no name", d.ID)
	}
	if strings.TrimSpace(d.TypeID) == "" {
		return ErrInvalidSubscription.WithDetails("device %s has no type", d.ID)
	}
	return nil
}

// DeviceSelection is one device's oil for a month. An empty OilID means
// nothing has been chosen yet.
type DeviceSelection struct {
	DeviceID uuid.UUID `json:"device_id"`
	OilID    string    `json:"oil_id,omitempty"`
}

// HasOil reports whether an oil has been chosen.
func (s DeviceSelection) HasOil() bool { return s.OilID != "" }

// MonthlySelection holds the per-device choices for one calendar month.
type MonthlySelection struct {
	Month   MonthKey          `json:"month"`
	Devices []DeviceSelection `json:"devices"`
}

// Selection returns the entry for deviceID.
func (m MonthlySelection) Selection(deviceID uuid.UUID) (DeviceSelection, bool) {
	for _, s := range m.Devices {
		if s.DeviceID == deviceID {
			return s, true
		}
	}
	return DeviceSelection{}, false
}

func (m MonthlySelection) clone() MonthlySelection {
	return MonthlySelection{
		Month:   m.Month,
		Devices: append([]DeviceSelection(nil), m.Devices...),
	}
}

// PlanTerms is the subscription's own copy of the plan it was bought on.
// Later catalog edits never change an existing subscription.
type PlanTerms struct {
	PlanID          string `json:"plan_id"`
	Name            string `json:"name"`
	DurationMonths  int    `json:"duration_months"`
	DiscountPercent int    `json:"discount_percent"`
	CatalogVersion  string `json:"catalog_version"`
}

func (t PlanTerms) validate() error {
	if strings.TrimSpace(t.PlanID) == "" {
		return ErrInvalidSubscription.WithDetails("plan id is empty")
	}
	if t.DurationMonths <= 0 {
		return ErrInvalidSubscription.WithDetails("plan duration must be positive")
	}
	if t.DiscountPercent < 0 || t.DiscountPercent > 100 {
		return ErrInvalidDiscount.WithDetails("%d%%", t.DiscountPercent)
	}
	return nil
}
