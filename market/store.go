package market

import "context"

// Store is the persistence boundary for the shop. Payment runs inside a
// single Update so stock and credit checks cannot race another session.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the record access available inside a transaction. Getters return
// copies.
type Tx interface {
	Product(id int64) (*Product, error)
	Products() ([]*Product, error)
	// CreateProduct inserts p and assigns p.ID.
	CreateProduct(p *Product) error
	PutProduct(p *Product) error
	DeleteProduct(id int64) error

	Account(email string) (*Account, error)
	Accounts() ([]*Account, error)
	PutAccount(a *Account) error

	AppendReceipt(r *Receipt) error
	Receipts(email string) ([]Receipt, error)
}
