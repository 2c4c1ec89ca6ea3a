package market

import (
	"context"
	"errors"
)

// DemoAccount is a seed user with a plaintext password to hash on insert.
type DemoAccount struct {
	Email, Password string
	Role            Role
}

// DemoProduct is a seed catalog entry.
type DemoProduct struct {
	Name     string
	Price    float64
	Quantity int
}

var (
	DemoAccounts = []DemoAccount{
		{Email: "admin@shop.com", Password: "admin123", Role: RoleAdmin},
		{Email: "cust@shop.com", Password: "cust123", Role: RoleCustomer},
	}
	DemoProducts = []DemoProduct{
		{Name: "Rice", Price: 60, Quantity: 20},
		{Name: "Sugar", Price: 45, Quantity: 10},
		{Name: "Oil", Price: 120, Quantity: 8},
	}
)

// SeedDemo loads the demo accounts and products into an empty store. It
// reports false when the store already had accounts and was left untouched.
func (m *MarketManager) SeedDemo(ctx context.Context) (bool, error) {
	var empty bool
	if err := m.store.View(ctx, func(tx Tx) error {
		accounts, err := tx.Accounts()
		empty = len(accounts) == 0
		return err
	}); err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	for _, a := range DemoAccounts {
		if err := m.createAccount(ctx, a.Email, a.Password, a.Role); err != nil && !errors.Is(err, ErrAccountExists) {
			return false, err
		}
	}
	admin := &Session{Email: DemoAccounts[0].Email, Role: RoleAdmin}
	for _, p := range DemoProducts {
		if _, err := m.AddProduct(ctx, admin, p.Name, p.Price, p.Quantity); err != nil {
			return false, err
		}
	}
	return true, nil
}
