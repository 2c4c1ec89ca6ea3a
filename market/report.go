package market

import (
	"cmp"
	"context"
	"slices"

	"github.com/montanaflynn/stats"
)

// LowStock lists products with fewer units than the policy's threshold.
func (m *MarketManager) LowStock(ctx context.Context) ([]*Product, error) {
	products, err := m.GetAllProducts(ctx, SortByName)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.Quantity < m.policy.LowStock {
			out = append(out, p)
		}
	}
	return out, nil
}

// NeverBought lists products no checkout has included yet.
func (m *MarketManager) NeverBought(ctx context.Context) ([]*Product, error) {
	products, err := m.GetAllProducts(ctx, SortByName)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if !p.EverBought {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MarketManager) customers(ctx context.Context) ([]*Account, error) {
	var out []*Account
	err := m.store.View(ctx, func(tx Tx) error {
		accounts, err := tx.Accounts()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.Role == RoleCustomer {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// TopCustomers ranks customers by total spend, highest first, capped at the
// policy's TopCustomers.
func (m *MarketManager) TopCustomers(ctx context.Context) ([]CustomerSpend, error) {
	customers, err := m.customers(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(customers, func(a, b *Account) int { return cmp.Compare(b.TotalSpent, a.TotalSpent) })
	if len(customers) > m.policy.TopCustomers {
		customers = customers[:m.policy.TopCustomers]
	}
	out := make([]CustomerSpend, len(customers))
	for i, c := range customers {
		out[i] = CustomerSpend{Email: c.Email, TotalSpent: c.TotalSpent}
	}
	return out, nil
}

// SpendSummary aggregates customer spend.
type SpendSummary struct {
	Customers int     `json:"customers" csv:"customers"`
	Total     float64 `json:"total" csv:"total"`
	Mean      float64 `json:"mean" csv:"mean"`
	Median    float64 `json:"median" csv:"median"`
	Max       float64 `json:"max" csv:"max"`
}

// Summary computes spend statistics over all customers. An empty shop yields
// a zero summary.
func (m *MarketManager) Summary(ctx context.Context) (SpendSummary, error) {
	customers, err := m.customers(ctx)
	if err != nil || len(customers) == 0 {
		return SpendSummary{}, err
	}
	spend := make(stats.Float64Data, len(customers))
	for i, c := range customers {
		spend[i] = c.TotalSpent
	}
	sum := SpendSummary{Customers: len(customers)}
	if sum.Total, err = spend.Sum(); err != nil {
		return SpendSummary{}, err
	}
	if sum.Mean, err = spend.Mean(); err != nil {
		return SpendSummary{}, err
	}
	if sum.Median, err = spend.Median(); err != nil {
		return SpendSummary{}, err
	}
	if sum.Max, err = spend.Max(); err != nil {
		return SpendSummary{}, err
	}
	return sum, nil
}
