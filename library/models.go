package library

import (
	"fmt"
	"slices"
	"time"
)

// Role gates the admin and borrower menus.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBorrower Role = "borrower"
)

// Book is a catalog entry. Quantity counts the copies on the shelf.
type Book struct {
	ISBN        string `json:"isbn" db:"isbn" csv:"isbn" validate:"required"`
	Name        string `json:"name" db:"name" csv:"name" validate:"required"`
	Author      string `json:"author" db:"author" csv:"author"`
	Quantity    int    `json:"quantity" db:"quantity" csv:"quantity" validate:"gte=0"`
	Cost        int    `json:"cost" db:"cost" csv:"cost" validate:"gte=0"`
	BorrowCount int    `json:"borrow_count" db:"borrow_count" csv:"borrow_count"`
}

// Account represents a registered library user.
// Borrowed and Fines are loaded from the loan and fine records.
type Account struct {
	Email        string   `json:"email" db:"email" validate:"required,email"`
	Name         string   `json:"name" db:"name" validate:"required"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Role         Role     `json:"role" db:"role" validate:"oneof=admin borrower"`
	Deposit      float64  `json:"deposit" db:"deposit"`
	Borrowed     []string `json:"borrowed" db:"-"`
	Fines        []Fine   `json:"fines" db:"-"`
}

// Holds reports whether isbn is in the account's borrowed set.
func (a *Account) Holds(isbn string) bool {
	return slices.Contains(a.Borrowed, isbn)
}

// Loan marks the day an account started borrowing a book.
type Loan struct {
	Email     string    `json:"email" db:"email"`
	ISBN      string    `json:"isbn" db:"isbn"`
	StartedOn time.Time `json:"started_on" db:"started_on"`
}

// Fine is an append-only late-return charge.
type Fine struct {
	ID         string    `json:"id" db:"id" csv:"id"`
	Email      string    `json:"email" db:"email" csv:"email"`
	ISBN       string    `json:"isbn" db:"isbn" csv:"isbn"`
	Amount     float64   `json:"amount" db:"amount" csv:"amount"`
	DaysLate   int       `json:"days_late" db:"days_late" csv:"days_late"`
	ReturnedOn time.Time `json:"returned_on" db:"returned_on" csv:"returned_on"`
}

func (f Fine) String() string {
	return fmt.Sprintf("Fine ₹%.2f for late return of book %s (%d days late, returned %s)",
		f.Amount, f.ISBN, f.DaysLate, f.ReturnedOn.Format(DateLayout))
}

// Session identifies the logged-in account for one shell.
type Session struct {
	Email string
	Name  string
	Role  Role
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// ReturnResult describes a completed return.
type ReturnResult struct {
	ISBN        string
	DaysElapsed int
	Fine        *Fine
	Deposit     float64
}

// SortBy selects the listing order.
type SortBy int

const (
	SortByName SortBy = iota
	SortByCost
)
