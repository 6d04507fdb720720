package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"valid", Plan{ID: "half-year", DiscountPercent: 15, DurationMonths: 6}, false},
		{"no discount", Plan{ID: "monthly", DiscountPercent: 0, DurationMonths: 1}, false},
		{"empty id", Plan{DurationMonths: 1}, true},
		{"negative discount", Plan{ID: "x", DiscountPercent: -1, DurationMonths: 1}, true},
		{"discount over 100", Plan{ID: "x", DiscountPercent: 101, DurationMonths: 1}, true},
		{"zero duration", Plan{ID: "x", DurationMonths: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCatalog)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeviceType_Validate(t *testing.T) {
	assert.NoError(t, DeviceType{ID: "mini", CapacityML: 100}.Validate())
	assert.ErrorIs(t, DeviceType{ID: "mini"}.Validate(), ErrInvalidCatalog)
	assert.ErrorIs(t, DeviceType{CapacityML: 10}.Validate(), ErrInvalidCatalog)
}

func TestAromaOil_Validate(t *testing.T) {
	assert.NoError(t, AromaOil{ID: "lavender"}.Validate())
	assert.ErrorIs(t, AromaOil{Name: "Lavender"}.Validate(), ErrInvalidCatalog)
}
