package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTier prices every device whose capacity is at most MaxCapacityML.
// A MaxCapacityML of zero marks the open-ended top tier.
type PriceTier struct {
	MaxCapacityML int
	Price         int64
}

// PriceTable is the capacity to monthly price step function.
type PriceTable struct {
	tiers []PriceTier
}

// Totals is the priced view of one month.
type Totals struct {
	Gross           int64 `json:"gross_total"`
	Discounted      int64 `json:"discounted_total"`
	DiscountPercent int   `json:"discount_percent"`
}

// DefaultPriceTiers: up to 100 ml, up to 250 ml, anything larger.
func DefaultPriceTiers() []PriceTier {
	return []PriceTier{
		{MaxCapacityML: 100, Price: 1000},
		{MaxCapacityML: 250, Price: 1500},
		{MaxCapacityML: 0, Price: 2200},
	}
}

// DefaultPriceTable builds the table from DefaultPriceTiers.
func DefaultPriceTable() *PriceTable {
	t, _ := NewPriceTable(DefaultPriceTiers())
	return t
}

// NewPriceTable validates tiers. Bounded tiers are sorted by capacity, there
// must be exactly one open-ended tier, and prices must not decrease as
// capacity grows.
func NewPriceTable(tiers []PriceTier) (*PriceTable, error) {
	var bounded []PriceTier
	var open *PriceTier
	for i := range tiers {
		tier := tiers[i]
		if tier.Price < 0 {
			return nil, ErrInvalidPriceTable.WithDetails("negative price %d", tier.Price)
		}
		switch {
		case tier.MaxCapacityML < 0:
			return nil, ErrInvalidPriceTable.WithDetails("negative capacity %d", tier.MaxCapacityML)
		case tier.MaxCapacityML == 0:
			if open != nil {
				return nil, ErrInvalidPriceTable.WithDetails("more than one open-ended tier")
			}
			open = &tier
		default:
			bounded = append(bounded, tier)
		}
	}
	if open == nil {
		return nil, ErrInvalidPriceTable.WithDetails("missing open-ended tier")
	}

	sort.Slice(bounded, func(i, j int) bool { return bounded[i].MaxCapacityML < bounded[j].MaxCapacityML })
	ordered := append(bounded, *open)
	for i := 1; i < len(ordered); i++ {
		if i < len(bounded) && ordered[i].MaxCapacityML == ordered[i-1].MaxCapacityML {
			return nil, ErrInvalidPriceTable.WithDetails("duplicate tier at %d ml", ordered[i].MaxCapacityML)
		}
		if ordered[i].Price < ordered[i-1].Price {
			return nil, ErrInvalidPriceTable.WithDetails("prices must not decrease with capacity")
		}
	}
	return &PriceTable{tiers: ordered}, nil
}

// Tiers returns a copy of the ordered tiers.
func (t *PriceTable) Tiers() []PriceTier {
	return append([]PriceTier(nil), t.tiers...)
}

// PriceForDevice returns the monthly price for a device of the given capacity.
func (t *PriceTable) PriceForDevice(capacityML int) (int64, error) {
	if capacityML <= 0 {
		return 0, ErrInvalidCapacity.WithDetails("%d ml", capacityML)
	}
	for _, tier := range t.tiers {
		if tier.MaxCapacityML == 0 || capacityML <= tier.MaxCapacityML {
			return tier.Price, nil
		}
	}
	// unreachable: the last tier is open-ended
	return t.tiers[len(t.tiers)-1].Price, nil
}

// MonthlyTotal prices one month. Every device counts whether or not an oil
// has been chosen. The discounted total is rounded half-up to a whole unit.
func (t *PriceTable) MonthlyTotal(capacities []int, discountPercent int) (Totals, error) {
	if discountPercent < 0 || discountPercent > 100 {
		return Totals{}, ErrInvalidDiscount.WithDetails("%d%%", discountPercent)
	}

	var gross int64
	for _, capacity := range capacities {
		price, err := t.PriceForDevice(capacity)
		if err != nil {
			return Totals{}, err
		}
		gross += price
	}

	discounted := decimal.NewFromInt(gross).
		Mul(decimal.NewFromInt(int64(100 - discountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(0)

	return Totals{
		Gross:           gross,
		Discounted:      discounted.IntPart(),
		DiscountPercent: discountPercent,
	}, nil
}

// ParsePriceTiers parses "100:1000,250:1500,*:2200". The "*" capacity marks
// the open-ended tier.
func ParsePriceTiers(s string) ([]PriceTier, error) {
	var tiers []PriceTier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		capStr, priceStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, ErrInvalidPriceTable.WithDetails("tier %q must be capacity:price", part)
		}
		price, err := strconv.ParseInt(strings.TrimSpace(priceStr), 10, 64)
		if err != nil {
			return nil, ErrInvalidPriceTable.WithDetails("tier %q: bad price", part)
		}
		tier := PriceTier{Price: price}
		if capStr = strings.TrimSpace(capStr); capStr != "*" {
			capacity, err := strconv.Atoi(capStr)
			if err != nil || capacity <= 0 {
				return nil, ErrInvalidPriceTable.WithDetails("tier %q: bad capacity", part)
			}
			tier.MaxCapacityML = capacity
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// FormatPriceTiers is the inverse of ParsePriceTiers.
func FormatPriceTiers(tiers []PriceTier) string {
	parts := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		capacity := "*"
		if tier.MaxCapacityML > 0 {
			capacity = strconv.Itoa(tier.MaxCapacityML)
		}
		parts = append(parts, fmt.Sprintf("%s:%d", capacity, tier.Price))
	}
	return strings.Join(parts, ",")
}
