package library

import (
	"cmp"
	"context"
	"slices"
)

// LowStock lists books with fewer copies on the shelf than the policy's
// threshold.
func (lm *LibraryManager) LowStock(ctx context.Context) ([]*Book, error) {
	books, err := lm.GetAllBooks(ctx, SortByName)
	if err != nil {
		return nil, err
	}
	out := books[:0]
	for _, b := range books {
		if b.Quantity < lm.policy.LowStock {
			out = append(out, b)
		}
	}
	return out, nil
}

// MostBorrowed lists books that were borrowed at least once, most borrowed
// first.
func (lm *LibraryManager) MostBorrowed(ctx context.Context) ([]*Book, error) {
	books, err := lm.GetAllBooks(ctx, SortByName)
	if err != nil {
		return nil, err
	}
	out := books[:0]
	for _, b := range books {
		if b.BorrowCount > 0 {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b *Book) int { return cmp.Compare(b.BorrowCount, a.BorrowCount) })
	return out, nil
}

// OutstandingFines lists every recorded fine across all accounts.
func (lm *LibraryManager) OutstandingFines(ctx context.Context) ([]Fine, error) {
	var fines []Fine
	err := lm.store.View(ctx, func(tx Tx) error {
		accounts, err := tx.Accounts()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			fines = append(fines, a.Fines...)
		}
		return nil
	})
	return fines, err
}
