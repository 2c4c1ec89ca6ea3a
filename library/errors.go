package library

import "errors"

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrBookExists       = errors.New("book already exists")
	ErrBookOnLoan       = errors.New("book has copies on loan")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrPermissionDenied = errors.New("permission denied")

	ErrBorrowLimit         = errors.New("borrow limit reached, return some books first")
	ErrInsufficientDeposit = errors.New("insufficient deposit")
	ErrUnavailable         = errors.New("book unavailable")
	ErrAlreadyBorrowed     = errors.New("already borrowed this book")
	ErrNotBorrowed         = errors.New("you have not borrowed this book")
	ErrInvalidDate         = errors.New("invalid date")
)
