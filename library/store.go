package library

import "context"

// Store is the persistence boundary for the lending desk. Every rule runs
// inside a single Update so that checks and writes on quantities and
// deposits cannot interleave with another session.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the record access available inside a transaction. Getters return
// copies; changes are persisted only through the Put methods.
type Tx interface {
	Book(isbn string) (*Book, error)
	Books() ([]*Book, error)
	PutBook(b *Book) error
	DeleteBook(isbn string) error

	// Account returns the account with its borrowed set and fine history.
	Account(email string) (*Account, error)
	Accounts() ([]*Account, error)
	PutAccount(a *Account) error

	Loan(email, isbn string) (*Loan, error)
	Loans() ([]*Loan, error)
	PutLoan(l *Loan) error
	DeleteLoan(email, isbn string) error

	AppendFine(f *Fine) error
}
