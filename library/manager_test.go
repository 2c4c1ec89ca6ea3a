package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"counter-desk/internal/auth"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

var loanDay = time.Date(2025, time.March, 1, 10, 30, 0, 0, time.Local)

// forEachStore runs fn against a fresh seeded manager on every backend.
func forEachStore(t *testing.T, fn func(t *testing.T, lm *LibraryManager)) {
	auth.Cost = bcrypt.MinCost
	backends := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return tempDB(t) },
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			lm := NewLibraryManager(open(t), WithClock((&fixedClock{t: loanDay}).now))
			seeded, err := lm.SeedDemo(context.Background())
			require.NoError(t, err)
			require.True(t, seeded)
			fn(t, lm)
		})
	}
}

func login(t *testing.T, lm *LibraryManager, email, password string) Session {
	t.Helper()
	s, err := lm.Login(context.Background(), email, password)
	require.NoError(t, err)
	return s
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseReturnDate(s)
	require.NoError(t, err)
	return d
}

func TestFinePolicy(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		cost, elapsed int
		want          float64
	}{
		{cost: 400, elapsed: 0, want: 0},
		{cost: 400, elapsed: 15, want: 0},
		{cost: 400, elapsed: 16, want: 2},
		{cost: 400, elapsed: 20, want: 10},
		{cost: 400, elapsed: 100, want: 170},
		{cost: 100, elapsed: 100, want: 80},
		{cost: 1, elapsed: 16, want: 0.8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cost=%d/elapsed=%d", tt.cost, tt.elapsed), func(t *testing.T) {
			assert.InDelta(t, tt.want, p.Fine(tt.cost, tt.elapsed), 1e-9)
		})
	}
}

func TestLogin(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		s := login(t, lm, "admin@lib.com", "admin123")
		assert.True(t, s.IsAdmin())

		_, err := lm.Login(ctx, "admin@lib.com", "nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = lm.Login(ctx, "ghost@lib.com", "pass")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestBorrowAndReturnOnTime(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		s := login(t, lm, "stu@lib.com", "pass")

		loan, err := lm.Borrow(ctx, s, "ISBN1")
		require.NoError(t, err)
		assert.Equal(t, CivilDate(loanDay), loan.StartedOn)

		book, err := lm.GetBook(ctx, "ISBN1")
		require.NoError(t, err)
		assert.Equal(t, 4, book.Quantity)
		assert.Equal(t, 1, book.BorrowCount)

		acct, err := lm.Account(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"ISBN1"}, acct.Borrowed)

		res, err := lm.Return(ctx, s, "ISBN1", date(t, "16/03/2025"))
		require.NoError(t, err)
		assert.Equal(t, 15, res.DaysElapsed)
		assert.Nil(t, res.Fine)
		assert.Equal(t, 1500.0, res.Deposit)

		book, _ = lm.GetBook(ctx, "ISBN1")
		assert.Equal(t, 5, book.Quantity)
		acct, _ = lm.Account(ctx, s)
		assert.Empty(t, acct.Borrowed)
		assert.Empty(t, acct.Fines)
	})
}

func TestReturnLateChargesFine(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		s := login(t, lm, "stu@lib.com", "pass")
		_, err := lm.Borrow(ctx, s, "ISBN1")
		require.NoError(t, err)

		res, err := lm.Return(ctx, s, "ISBN1", date(t, "21/03/2025"))
		require.NoError(t, err)
		assert.Equal(t, 20, res.DaysElapsed)
		require.NotNil(t, res.Fine)
		assert.InDelta(t, 10.0, res.Fine.Amount, 1e-9)
		assert.Equal(t, 5, res.Fine.DaysLate)
		assert.InDelta(t, 1490.0, res.Deposit, 1e-9)

		fines, err := lm.FineHistory(ctx, s)
		require.NoError(t, err)
		require.Len(t, fines, 1)
		assert.Equal(t, "ISBN1", fines[0].ISBN)
		assert.Contains(t, fines[0].String(), "Fine ₹10.00 for late return of book ISBN1")
	})
}

func TestBorrowLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		admin := login(t, lm, "admin@lib.com", "admin123")
		for _, isbn := range []string{"ISBN3", "ISBN4"} {
			require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: isbn, Name: "Title " + isbn, Quantity: 1, Cost: 100}))
		}

		s := login(t, lm, "stu@lib.com", "pass")
		for _, isbn := range []string{"ISBN1", "ISBN2", "ISBN3"} {
			_, err := lm.Borrow(ctx, s, isbn)
			require.NoError(t, err, isbn)
		}
		_, err := lm.Borrow(ctx, s, "ISBN4")
		assert.ErrorIs(t, err, ErrBorrowLimit)

		acct, _ := lm.Account(ctx, s)
		assert.Len(t, acct.Borrowed, 3)
		book, _ := lm.GetBook(ctx, "ISBN4")
		assert.Equal(t, 1, book.Quantity)
	})
}

func TestBorrowRejections(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		admin := login(t, lm, "admin@lib.com", "admin123")
		require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: "EMPTY", Name: "Out Of Print", Quantity: 0, Cost: 50}))

		s := login(t, lm, "stu@lib.com", "pass")
		_, err := lm.Borrow(ctx, s, "ISBN1")
		require.NoError(t, err)

		_, err = lm.Borrow(ctx, s, "ISBN1")
		assert.ErrorIs(t, err, ErrAlreadyBorrowed)
		_, err = lm.Borrow(ctx, s, "EMPTY")
		assert.ErrorIs(t, err, ErrUnavailable)
		_, err = lm.Borrow(ctx, s, "NOPE")
		assert.ErrorIs(t, err, ErrUnavailable)

		_, err = lm.Borrow(ctx, admin, "ISBN2")
		assert.ErrorIs(t, err, ErrPermissionDenied)
		_, err = lm.Return(ctx, admin, "ISBN1", loanDay)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		book, _ := lm.GetBook(ctx, "ISBN1")
		assert.Equal(t, 4, book.Quantity)
		assert.Equal(t, 1, book.BorrowCount)
	})
}

func TestDepositFloor(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		admin := login(t, lm, "admin@lib.com", "admin123")
		require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: "RARE", Name: "Rare Atlas", Quantity: 1, Cost: 1000}))

		s := login(t, lm, "stu@lib.com", "pass")
		// Each very late return costs the 80% cap: 800.
		for i, want := range []float64{700, -100} {
			_, err := lm.Borrow(ctx, s, "RARE")
			require.NoError(t, err, "round %d", i)
			res, err := lm.Return(ctx, s, "RARE", date(t, "01/01/2030"))
			require.NoError(t, err)
			assert.InDelta(t, 800.0, res.Fine.Amount, 1e-9)
			assert.InDelta(t, want, res.Deposit, 1e-9)
		}

		_, err := lm.Borrow(ctx, s, "ISBN1")
		assert.ErrorIs(t, err, ErrInsufficientDeposit)

		fines, _ := lm.FineHistory(ctx, s)
		assert.Len(t, fines, 2)
	})
}

func TestReturnTwiceIsRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		s := login(t, lm, "stu@lib.com", "pass")
		_, err := lm.Borrow(ctx, s, "ISBN2")
		require.NoError(t, err)

		_, err = lm.Return(ctx, s, "ISBN2", date(t, "02/03/2025"))
		require.NoError(t, err)
		_, err = lm.Return(ctx, s, "ISBN2", date(t, "02/03/2025"))
		assert.ErrorIs(t, err, ErrNotBorrowed)

		book, _ := lm.GetBook(ctx, "ISBN2")
		assert.Equal(t, 3, book.Quantity)
	})
}

func TestReturnBeforeLoanStartLeavesLoanOpen(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		s := login(t, lm, "stu@lib.com", "pass")
		_, err := lm.Borrow(ctx, s, "ISBN1")
		require.NoError(t, err)

		_, err = lm.Return(ctx, s, "ISBN1", date(t, "28/02/2025"))
		assert.ErrorIs(t, err, ErrInvalidDate)

		acct, _ := lm.Account(ctx, s)
		assert.Equal(t, []string{"ISBN1"}, acct.Borrowed)
		book, _ := lm.GetBook(ctx, "ISBN1")
		assert.Equal(t, 4, book.Quantity)
	})
}

func TestCatalogMaintenance(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		admin := login(t, lm, "admin@lib.com", "admin123")
		s := login(t, lm, "stu@lib.com", "pass")

		assert.ErrorIs(t, lm.AddBook(ctx, s, Book{ISBN: "X", Name: "X", Quantity: 1}), ErrPermissionDenied)
		assert.ErrorIs(t, lm.AddBook(ctx, admin, Book{ISBN: "ISBN1", Name: "Dup", Quantity: 1}), ErrBookExists)
		assert.Error(t, lm.AddBook(ctx, admin, Book{ISBN: "NEG", Name: "Negative", Quantity: -1}))

		require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: "ISBN3", Name: "Algorithms", Author: "Knuth", Quantity: 2, Cost: 900}))

		books, err := lm.GetAllBooks(ctx, SortByName)
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, []string{"Algorithms", "Java Programming", "Python Basics"},
			[]string{books[0].Name, books[1].Name, books[2].Name})

		books, err = lm.GetAllBooks(ctx, SortByCost)
		require.NoError(t, err)
		assert.Equal(t, []int{350, 400, 900}, []int{books[0].Cost, books[1].Cost, books[2].Cost})

		found, err := lm.SearchBook(ctx, "python basics")
		require.NoError(t, err)
		assert.Equal(t, "ISBN2", found.ISBN)
		found, err = lm.SearchBook(ctx, "isbn3")
		require.NoError(t, err)
		assert.Equal(t, "Algorithms", found.Name)
		_, err = lm.SearchBook(ctx, "cobol")
		assert.ErrorIs(t, err, ErrBookNotFound)

		require.NoError(t, lm.UpdateBook(ctx, admin, Book{ISBN: "ISBN3", Name: "TAOCP", Author: "Knuth", Quantity: 4, Cost: 950}))
		b, _ := lm.GetBook(ctx, "ISBN3")
		assert.Equal(t, "TAOCP", b.Name)
		assert.Equal(t, 4, b.Quantity)

		_, err = lm.Borrow(ctx, s, "ISBN3")
		require.NoError(t, err)
		assert.ErrorIs(t, lm.DeleteBook(ctx, admin, "ISBN3"), ErrBookOnLoan)
		require.NoError(t, lm.DeleteBook(ctx, admin, "ISBN2"))
		assert.ErrorIs(t, lm.DeleteBook(ctx, admin, "ISBN2"), ErrBookNotFound)
	})
}

func TestReports(t *testing.T) {
	forEachStore(t, func(t *testing.T, lm *LibraryManager) {
		ctx := context.Background()
		admin := login(t, lm, "admin@lib.com", "admin123")
		require.NoError(t, lm.AddAccount(ctx, admin, "Second", "two@lib.com", "pw", RoleBorrower))
		require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: "ISBN3", Name: "Single Copy", Quantity: 1, Cost: 10}))

		stu := login(t, lm, "stu@lib.com", "pass")
		two := login(t, lm, "two@lib.com", "pw")
		for _, s := range []Session{stu, two} {
			_, err := lm.Borrow(ctx, s, "ISBN2")
			require.NoError(t, err)
		}
		_, err := lm.Borrow(ctx, stu, "ISBN1")
		require.NoError(t, err)

		low, err := lm.LowStock(ctx)
		require.NoError(t, err)
		var lowNames []string
		for _, b := range low {
			lowNames = append(lowNames, b.ISBN)
		}
		assert.ElementsMatch(t, []string{"ISBN2", "ISBN3"}, lowNames)

		most, err := lm.MostBorrowed(ctx)
		require.NoError(t, err)
		require.Len(t, most, 2)
		assert.Equal(t, "ISBN2", most[0].ISBN)
		assert.Equal(t, 2, most[0].BorrowCount)
		assert.Equal(t, "ISBN1", most[1].ISBN)

		accounts, err := lm.GetAllAccounts(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, accounts, 3)
		_, err = lm.GetAllAccounts(ctx, stu)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestSeedDemoRunsOnce(t *testing.T) {
	auth.Cost = bcrypt.MinCost
	lm := NewLibraryManager(tempDB(t))
	ctx := context.Background()

	seeded, err := lm.SeedDemo(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
	seeded, err = lm.SeedDemo(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestConcurrentBorrowNeverOversells(t *testing.T) {
	auth.Cost = bcrypt.MinCost
	ctx := context.Background()
	lm := NewLibraryManager(NewMemoryStore(), WithClock((&fixedClock{t: loanDay}).now))
	_, err := lm.SeedDemo(ctx)
	require.NoError(t, err)
	admin := login(t, lm, "admin@lib.com", "admin123")
	require.NoError(t, lm.AddBook(ctx, admin, Book{ISBN: "HOT", Name: "Bestseller", Quantity: 2, Cost: 300}))

	const borrowers = 8
	sessions := make([]Session, borrowers)
	for i := range sessions {
		email := fmt.Sprintf("reader%d@lib.com", i)
		require.NoError(t, lm.AddAccount(ctx, admin, "Reader", email, "pw", RoleBorrower))
		sessions[i] = Session{Email: email, Role: RoleBorrower}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for _, s := range sessions {
		wg.Add(1)
		go func(s Session) {
			defer wg.Done()
			_, err := lm.Borrow(ctx, s, "HOT")
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			} else if !errors.Is(err, ErrUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(s)
	}
	wg.Wait()

	assert.Equal(t, 2, granted)
	book, err := lm.GetBook(ctx, "HOT")
	require.NoError(t, err)
	assert.Equal(t, 0, book.Quantity)
	assert.Equal(t, 2, book.BorrowCount)
}

func TestNewDatabaseCreatesDirectory(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "dir", "lib.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
