package commission_fee

import "math"

const (
	DefaultCommissionPerShare = 0.01
	DefaultCommissionMinimum  = 1.0
)

// PerShareWithMinCommissionFee charges a fixed cost per share with a minimum per fill.
type PerShareWithMinCommissionFee struct {
	perShare float64
	minimum  float64
}

func NewPerShareWithMinCommissionFee(perShare, minimum float64) CommissionFee {
	return &PerShareWithMinCommissionFee{
		perShare: perShare,
		minimum:  minimum,
	}
}

func (c *PerShareWithMinCommissionFee) Calculate(quantity float64) float64 {
	fee := math.Abs(quantity) * c.perShare
	if fee < c.minimum {
		return c.minimum
	}

	return fee
}
