package market

import "errors"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
	ErrPermissionDenied = errors.New("permission denied")

	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrNotInCart          = errors.New("product not in cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientCredit = errors.New("insufficient credit")
)
