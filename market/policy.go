package market

import "math"

// Policy holds the checkout reward rules.
type Policy struct {
	InitialCredit      float64 `yaml:"initial_credit" validate:"gte=0"`
	FlatBonusThreshold float64 `yaml:"flat_bonus_threshold" validate:"gt=0"`
	Bonus              float64 `yaml:"bonus" validate:"gte=0"`
	SpendPerPoint      float64 `yaml:"spend_per_point" validate:"gt=0"`
	PointsThreshold    int     `yaml:"points_threshold" validate:"gt=0"`
	LowStock           int     `yaml:"low_stock" validate:"gte=0"`
	TopCustomers       int     `yaml:"top_customers" validate:"gt=0"`
}

func DefaultPolicy() Policy {
	return Policy{
		InitialCredit:      1000,
		FlatBonusThreshold: 5000,
		Bonus:              100,
		SpendPerPoint:      100,
		PointsThreshold:    50,
		LowStock:           5,
		TopCustomers:       5,
	}
}

// Reward is what a checkout earns.
type Reward struct {
	Bonus          float64
	PointsEarned   int
	PointsRedeemed int
}

// Reward computes the checkout reward for a bill of total given the
// customer's points before the purchase. Large bills earn the flat bonus and
// no points. Otherwise points accrue and one bonus is granted when the
// balance reaches the threshold; a single checkout never redeems more than
// one threshold's worth of points.
func (p Policy) Reward(total float64, points int) Reward {
	if total >= p.FlatBonusThreshold {
		return Reward{Bonus: p.Bonus}
	}
	r := Reward{PointsEarned: int(math.Floor(total / p.SpendPerPoint))}
	if points+r.PointsEarned >= p.PointsThreshold {
		r.Bonus = p.Bonus
		r.PointsRedeemed = p.PointsThreshold
	}
	return r
}
