package library

import "math"

// Policy holds the lending rules. DefaultPolicy matches the desk's
// long-standing terms.
type Policy struct {
	MaxLoans       int     `yaml:"max_loans" validate:"gt=0"`
	MinDeposit     float64 `yaml:"min_deposit" validate:"gte=0"`
	InitialDeposit float64 `yaml:"initial_deposit" validate:"gte=0"`
	GraceDays      int     `yaml:"grace_days" validate:"gte=0"`
	DailyFine      float64 `yaml:"daily_fine" validate:"gte=0"`
	FineCapPercent int     `yaml:"fine_cap_percent" validate:"gte=0,lte=100"`
	LowStock       int     `yaml:"low_stock" validate:"gte=0"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxLoans:       3,
		MinDeposit:     500,
		InitialDeposit: 1500,
		GraceDays:      15,
		DailyFine:      2,
		FineCapPercent: 80,
		LowStock:       2,
	}
}

// Fine computes the late fee for a book of the given cost returned after
// elapsed days: nothing inside the grace period, then DailyFine per extra
// day capped at FineCapPercent of the cost.
func (p Policy) Fine(cost, elapsed int) float64 {
	if elapsed <= p.GraceDays {
		return 0
	}
	capped := float64(p.FineCapPercent*cost) / 100
	return math.Min(capped, p.DailyFine*float64(elapsed-p.GraceDays))
}
