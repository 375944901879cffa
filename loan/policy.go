package loan

import "github.com/shopspring/decimal"

// Policy holds the lending constants applied during schedule generation.
// Values are configuration, not code: deployments may override them, the
// defaults match the product rules.
type Policy struct {
	// FloorAnnualRate is the minimum annual rate (percent) ever granted.
	// A lower requested rate is clamped up, not rejected.
	FloorAnnualRate decimal.Decimal

	// AffordabilityCap is the maximum fraction of monthly income one
	// installment may consume.
	AffordabilityCap decimal.Decimal

	// MinTotalInterest is the minimum lifetime interest below which a
	// loan is rejected as uneconomical.
	MinTotalInterest decimal.Decimal
}

// DefaultPolicy returns the standard lending policy: 14% rate floor,
// 60% income cap, 10,000 minimum lifetime interest.
func DefaultPolicy() Policy {
	return Policy{
		FloorAnnualRate:  decimal.NewFromInt(14),
		AffordabilityCap: decimal.RequireFromString("0.6"),
		MinTotalInterest: decimal.NewFromInt(10000),
	}
}

// productCaps are the per-product principal ceilings.
var productCaps = map[Type]decimal.Decimal{
	TypeCar:       decimal.NewFromInt(750_000),
	TypeHome:      decimal.NewFromInt(8_500_000),
	TypeEducation: decimal.NewFromInt(5_000_000),
	TypePersonal:  decimal.NewFromInt(1_000_000),
}

// MaxPrincipal returns the principal ceiling for a loan product, and
// whether the product is known at all.
func MaxPrincipal(t Type) (decimal.Decimal, bool) {
	cap, ok := productCaps[t]
	return cap, ok
}
