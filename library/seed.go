package library

import (
	"context"
	"errors"
)

// DemoAccount is a seed user with a plaintext password to hash on insert.
type DemoAccount struct {
	Name, Email, Password string
	Role                  Role
}

var (
	DemoAccounts = []DemoAccount{
		{Name: "Admin", Email: "admin@lib.com", Password: "admin123", Role: RoleAdmin},
		{Name: "Student", Email: "stu@lib.com", Password: "pass", Role: RoleBorrower},
	}
	DemoBooks = []Book{
		{ISBN: "ISBN1", Name: "Java Programming", Author: "James", Quantity: 5, Cost: 400},
		{ISBN: "ISBN2", Name: "Python Basics", Author: "Guido", Quantity: 3, Cost: 350},
	}
)

// SeedDemo loads the demo accounts and books into an empty store. It reports
// false when the store already had accounts and was left untouched.
func (lm *LibraryManager) SeedDemo(ctx context.Context) (bool, error) {
	var empty bool
	if err := lm.store.View(ctx, func(tx Tx) error {
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
		if err := lm.createAccount(ctx, a.Name, a.Email, a.Password, a.Role); err != nil && !errors.Is(err, ErrAccountExists) {
			return false, err
		}
	}
	admin := Session{Email: DemoAccounts[0].Email, Role: RoleAdmin}
	for _, b := range DemoBooks {
		if err := lm.AddBook(ctx, admin, b); err != nil && !errors.Is(err, ErrBookExists) {
			return false, err
		}
	}
	return true, nil
}
