package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"counter-desk/internal/auth"
)

// LibraryManager applies the lending rules on top of a Store. It is safe for
// concurrent use by several sessions; each operation runs in one store
// transaction.
type LibraryManager struct {
	store    Store
	policy   Policy
	log      *zap.Logger
	now      func() time.Time
	validate *validator.Validate
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

func WithPolicy(p Policy) Option { return func(lm *LibraryManager) { lm.policy = p } }

func WithLogger(l *zap.Logger) Option { return func(lm *LibraryManager) { lm.log = l } }

// WithClock overrides the source of "today" used as the loan start date.
func WithClock(now func() time.Time) Option { return func(lm *LibraryManager) { lm.now = now } }

// NewLibraryManager wraps store with the default policy.
func NewLibraryManager(store Store, opts ...Option) *LibraryManager {
	lm := &LibraryManager{
		store:    store,
		policy:   DefaultPolicy(),
		log:      zap.NewNop(),
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(lm)
	}
	lm.log = lm.log.Named("library")
	return lm
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

func (lm *LibraryManager) Policy() Policy { return lm.policy }

// ------------------ Accounts ------------------

// Login checks credentials and opens a session.
func (lm *LibraryManager) Login(ctx context.Context, email, password string) (Session, error) {
	var acct *Account
	err := lm.store.View(ctx, func(tx Tx) error {
		var err error
		acct, err = tx.Account(strings.TrimSpace(email))
		return err
	})
	if errors.Is(err, ErrAccountNotFound) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(acct.PasswordHash, password); err != nil {
		lm.log.Debug("login rejected", zap.String("email", acct.Email))
		return Session{}, err
	}
	return Session{Email: acct.Email, Name: acct.Name, Role: acct.Role}, nil
}

// AddAccount registers a user with the initial deposit. Admin only.
func (lm *LibraryManager) AddAccount(ctx context.Context, s Session, name, email, password string, role Role) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	return lm.createAccount(ctx, name, email, password, role)
}

func (lm *LibraryManager) createAccount(ctx context.Context, name, email, password string, role Role) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	acct := &Account{
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		Deposit:      lm.policy.InitialDeposit,
	}
	if err := lm.validate.Struct(acct); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	err = lm.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Account(acct.Email); err == nil {
			return ErrAccountExists
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return tx.PutAccount(acct)
	})
	if err != nil {
		return err
	}
	lm.log.Info("account added", zap.String("email", acct.Email), zap.String("role", string(role)))
	return nil
}

// Account returns the session's own account.
func (lm *LibraryManager) Account(ctx context.Context, s Session) (*Account, error) {
	var acct *Account
	err := lm.store.View(ctx, func(tx Tx) error {
		var err error
		acct, err = tx.Account(s.Email)
		return err
	})
	return acct, err
}

// FineHistory lists the session account's fines, oldest first.
func (lm *LibraryManager) FineHistory(ctx context.Context, s Session) ([]Fine, error) {
	acct, err := lm.Account(ctx, s)
	if err != nil {
		return nil, err
	}
	return acct.Fines, nil
}

// GetAllAccounts lists every account. Admin only.
func (lm *LibraryManager) GetAllAccounts(ctx context.Context, s Session) ([]*Account, error) {
	if !s.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	var accounts []*Account
	err := lm.store.View(ctx, func(tx Tx) error {
		var err error
		accounts, err = tx.Accounts()
		return err
	})
	return accounts, err
}

// ------------------ Catalog ------------------

// AddBook adds a new title. Admin only.
func (lm *LibraryManager) AddBook(ctx context.Context, s Session, b Book) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	b.ISBN, b.Name, b.Author = strings.TrimSpace(b.ISBN), strings.TrimSpace(b.Name), strings.TrimSpace(b.Author)
	b.BorrowCount = 0
	if err := lm.validate.Struct(&b); err != nil {
		return fmt.Errorf("invalid book: %w", err)
	}
	err := lm.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Book(b.ISBN); err == nil {
			return ErrBookExists
		} else if !errors.Is(err, ErrBookNotFound) {
			return err
		}
		return tx.PutBook(&b)
	})
	if err != nil {
		return err
	}
	lm.log.Info("book added", zap.String("isbn", b.ISBN), zap.Int("quantity", b.Quantity))
	return nil
}

// UpdateBook replaces name, author, cost and quantity of an existing title,
// keeping its borrow count. Admin only.
func (lm *LibraryManager) UpdateBook(ctx context.Context, s Session, b Book) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := lm.validate.Struct(&b); err != nil {
		return fmt.Errorf("invalid book: %w", err)
	}
	return lm.store.Update(ctx, func(tx Tx) error {
		cur, err := tx.Book(b.ISBN)
		if err != nil {
			return err
		}
		cur.Name, cur.Author, cur.Cost, cur.Quantity = b.Name, b.Author, b.Cost, b.Quantity
		return tx.PutBook(cur)
	})
}

// DeleteBook removes a title that has no outstanding loans. Admin only.
func (lm *LibraryManager) DeleteBook(ctx context.Context, s Session, isbn string) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	return lm.store.Update(ctx, func(tx Tx) error {
		loans, err := tx.Loans()
		if err != nil {
			return err
		}
		for _, l := range loans {
			if l.ISBN == isbn {
				return ErrBookOnLoan
			}
		}
		return tx.DeleteBook(isbn)
	})
}

func (lm *LibraryManager) GetBook(ctx context.Context, isbn string) (*Book, error) {
	var b *Book
	err := lm.store.View(ctx, func(tx Tx) error {
		var err error
		b, err = tx.Book(isbn)
		return err
	})
	return b, err
}

// GetAllBooks lists the catalog sorted by name or by cost, ascending.
func (lm *LibraryManager) GetAllBooks(ctx context.Context, by SortBy) ([]*Book, error) {
	var books []*Book
	err := lm.store.View(ctx, func(tx Tx) error {
		var err error
		books, err = tx.Books()
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(books, func(a, b *Book) int {
		if by == SortByCost {
			return cmp.Compare(a.Cost, b.Cost)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return books, nil
}

// SearchBook returns the first book whose ISBN or name equals q, ignoring
// case.
func (lm *LibraryManager) SearchBook(ctx context.Context, q string) (*Book, error) {
	q = strings.TrimSpace(q)
	var found *Book
	err := lm.store.View(ctx, func(tx Tx) error {
		books, err := tx.Books()
		if err != nil {
			return err
		}
		for _, b := range books {
			if strings.EqualFold(b.ISBN, q) || strings.EqualFold(b.Name, q) {
				found = b
				return nil
			}
		}
		return ErrBookNotFound
	})
	return found, err
}

// ------------------ Circulation ------------------

// Borrow lends one copy of isbn to the session account.
func (lm *LibraryManager) Borrow(ctx context.Context, s Session, isbn string) (*Loan, error) {
	if s.Role != RoleBorrower {
		return nil, ErrPermissionDenied
	}
	loan := &Loan{Email: s.Email, ISBN: strings.TrimSpace(isbn), StartedOn: CivilDate(lm.now())}
	err := lm.store.Update(ctx, func(tx Tx) error {
		acct, err := tx.Account(s.Email)
		if err != nil {
			return err
		}
		if len(acct.Borrowed) >= lm.policy.MaxLoans {
			return ErrBorrowLimit
		}
		if acct.Deposit < lm.policy.MinDeposit {
			return fmt.Errorf("%w: need minimum ₹%.0f", ErrInsufficientDeposit, lm.policy.MinDeposit)
		}
		book, err := tx.Book(loan.ISBN)
		if errors.Is(err, ErrBookNotFound) {
			return ErrUnavailable
		}
		if err != nil {
			return err
		}
		if book.Quantity <= 0 {
			return ErrUnavailable
		}
		if acct.Holds(book.ISBN) {
			return ErrAlreadyBorrowed
		}

		book.Quantity--
		book.BorrowCount++
		if err := tx.PutBook(book); err != nil {
			return err
		}
		return tx.PutLoan(loan)
	})
	if err != nil {
		lm.log.Debug("borrow rejected", zap.String("email", s.Email), zap.String("isbn", loan.ISBN), zap.Error(err))
		return nil, err
	}
	lm.log.Info("book borrowed", zap.String("email", s.Email), zap.String("isbn", loan.ISBN))
	return loan, nil
}

// Return closes the session account's loan of isbn on returnDate, charging a
// late fee against the deposit when the grace period has passed. The deposit
// may go negative; the debt then blocks further borrowing. A second return of
// the same loan fails with ErrNotBorrowed and changes nothing.
func (lm *LibraryManager) Return(ctx context.Context, s Session, isbn string, returnDate time.Time) (*ReturnResult, error) {
	if s.Role != RoleBorrower {
		return nil, ErrPermissionDenied
	}
	isbn = strings.TrimSpace(isbn)
	res := &ReturnResult{ISBN: isbn}
	err := lm.store.Update(ctx, func(tx Tx) error {
		acct, err := tx.Account(s.Email)
		if err != nil {
			return err
		}
		if !acct.Holds(isbn) {
			return ErrNotBorrowed
		}
		loan, err := tx.Loan(s.Email, isbn)
		if err != nil {
			return err
		}
		book, err := tx.Book(isbn)
		if err != nil {
			return err
		}

		res.DaysElapsed = DaysBetween(loan.StartedOn, returnDate)
		if res.DaysElapsed < 0 {
			return fmt.Errorf("%w: return date %s is before the loan started on %s",
				ErrInvalidDate, returnDate.Format(DateLayout), loan.StartedOn.Format(DateLayout))
		}

		if amount := lm.policy.Fine(book.Cost, res.DaysElapsed); amount > 0 {
			fine := &Fine{
				ID:         uuid.NewString(),
				Email:      acct.Email,
				ISBN:       isbn,
				Amount:     amount,
				DaysLate:   res.DaysElapsed - lm.policy.GraceDays,
				ReturnedOn: CivilDate(returnDate),
			}
			acct.Deposit -= amount
			if err := tx.PutAccount(acct); err != nil {
				return err
			}
			if err := tx.AppendFine(fine); err != nil {
				return err
			}
			res.Fine = fine
		}
		res.Deposit = acct.Deposit

		if err := tx.DeleteLoan(s.Email, isbn); err != nil {
			return err
		}
		book.Quantity++
		return tx.PutBook(book)
	})
	if err != nil {
		lm.log.Debug("return rejected", zap.String("email", s.Email), zap.String("isbn", isbn), zap.Error(err))
		return nil, err
	}
	fields := []zap.Field{zap.String("email", s.Email), zap.String("isbn", isbn), zap.Int("days", res.DaysElapsed)}
	if res.Fine != nil {
		fields = append(fields, zap.Float64("fine", res.Fine.Amount))
	}
	lm.log.Info("book returned", fields...)
	return res, nil
}
