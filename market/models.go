// Package market implements the retail inventory and checkout desk: product
// catalog, customer credit, carts, payment with loyalty rewards, and reports.
package market

import (
	"fmt"
	"time"
)

// Role gates the admin and customer menus.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Product is a catalog entry.
type Product struct {
	ID         int64   `json:"id" db:"id" csv:"id"`
	Name       string  `json:"name" db:"name" csv:"name" validate:"required"`
	Price      float64 `json:"price" db:"price" csv:"price" validate:"gte=0"`
	Quantity   int     `json:"quantity" db:"quantity" csv:"quantity" validate:"gte=0"`
	EverBought bool    `json:"ever_bought" db:"ever_bought" csv:"ever_bought"`
}

// Account is a shop user. Credit and loyalty fields only move for customers.
type Account struct {
	Email         string  `json:"email" db:"email" validate:"required,email"`
	PasswordHash  string  `json:"-" db:"password_hash"`
	Role          Role    `json:"role" db:"role" validate:"oneof=admin customer"`
	Credit        float64 `json:"credit" db:"credit"`
	LoyaltyPoints int     `json:"loyalty_points" db:"loyalty_points" validate:"gte=0"`
	TotalSpent    float64 `json:"total_spent" db:"total_spent"`
}

// Receipt is one entry of an account's purchase history.
type Receipt struct {
	ID       string    `json:"id" db:"id" csv:"id"`
	Email    string    `json:"email" db:"email" csv:"email"`
	Total    float64   `json:"total" db:"total" csv:"total"`
	Summary  string    `json:"summary" db:"summary" csv:"summary"`
	IssuedAt time.Time `json:"issued_at" db:"issued_at" csv:"issued_at"`
}

func (r Receipt) String() string {
	return fmt.Sprintf("Bill on %s -> ₹%.2f (%s)", r.IssuedAt.Format(time.RFC1123), r.Total, r.Summary)
}

// Session is one logged-in shopper with their own cart.
type Session struct {
	Email string
	Role  Role
	Cart  *Cart
}

func (s *Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Payment describes a completed checkout.
type Payment struct {
	Receipt Receipt
	Reward  Reward
	Credit  float64
	Points  int
}

// CustomerSpend is a row of the top-customers report.
type CustomerSpend struct {
	Email      string  `json:"email" csv:"email"`
	TotalSpent float64 `json:"total_spent" csv:"total_spent"`
}

// SortBy selects the listing order.
type SortBy int

const (
	SortByName SortBy = iota
	SortByPrice
)
