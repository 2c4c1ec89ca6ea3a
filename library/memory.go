package library

import (
	"context"
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 16

// MemoryStore keeps the desk in ordered in-memory indexes. Update holds the
// write lock for the whole transaction and restores copy-on-write snapshots
// of every index if fn fails.
type MemoryStore struct {
	mu       sync.RWMutex
	books    *btree.BTreeG[*Book]
	accounts *btree.BTreeG[*Account]
	loans    *btree.BTreeG[*Loan]
	fines    map[string][]Fine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: btree.NewG(btreeDegree, func(a, b *Book) bool { return a.ISBN < b.ISBN }),
		accounts: btree.NewG(btreeDegree, func(a, b *Account) bool {
			return a.Email < b.Email
		}),
		loans: btree.NewG(btreeDegree, func(a, b *Loan) bool {
			if a.Email != b.Email {
				return a.Email < b.Email
			}
			return a.ISBN < b.ISBN
		}),
		fines: make(map[string][]Fine),
	}
}

func (s *MemoryStore) View(_ context.Context, fn func(Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(memTx{s})
}

func (s *MemoryStore) Update(_ context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books, accounts, loans := s.books.Clone(), s.accounts.Clone(), s.loans.Clone()
	fines := make(map[string][]Fine, len(s.fines))
	for k, v := range s.fines {
		fines[k] = v
	}

	if err := fn(memTx{s}); err != nil {
		s.books, s.accounts, s.loans, s.fines = books, accounts, loans, fines
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct{ s *MemoryStore }

func (t memTx) Book(isbn string) (*Book, error) {
	b, ok := t.s.books.Get(&Book{ISBN: isbn})
	if !ok {
		return nil, ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (t memTx) Books() ([]*Book, error) {
	out := make([]*Book, 0, t.s.books.Len())
	t.s.books.Ascend(func(b *Book) bool {
		cp := *b
		out = append(out, &cp)
		return true
	})
	return out, nil
}

func (t memTx) PutBook(b *Book) error {
	cp := *b
	t.s.books.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) DeleteBook(isbn string) error {
	if _, ok := t.s.books.Delete(&Book{ISBN: isbn}); !ok {
		return ErrBookNotFound
	}
	return nil
}

func (t memTx) Account(email string) (*Account, error) {
	a, ok := t.s.accounts.Get(&Account{Email: email})
	if !ok {
		return nil, ErrAccountNotFound
	}
	return t.load(a), nil
}

func (t memTx) Accounts() ([]*Account, error) {
	out := make([]*Account, 0, t.s.accounts.Len())
	t.s.accounts.Ascend(func(a *Account) bool {
		out = append(out, t.load(a))
		return true
	})
	return out, nil
}

// load copies the stored account and attaches its loans and fines.
func (t memTx) load(a *Account) *Account {
	cp := *a
	cp.Borrowed = nil
	t.s.loans.AscendGreaterOrEqual(&Loan{Email: a.Email}, func(l *Loan) bool {
		if l.Email != a.Email {
			return false
		}
		cp.Borrowed = append(cp.Borrowed, l.ISBN)
		return true
	})
	cp.Fines = append([]Fine(nil), t.s.fines[a.Email]...)
	return &cp
}

func (t memTx) PutAccount(a *Account) error {
	cp := *a
	cp.Borrowed, cp.Fines = nil, nil
	t.s.accounts.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) Loan(email, isbn string) (*Loan, error) {
	l, ok := t.s.loans.Get(&Loan{Email: email, ISBN: isbn})
	if !ok {
		return nil, ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (t memTx) Loans() ([]*Loan, error) {
	out := make([]*Loan, 0, t.s.loans.Len())
	t.s.loans.Ascend(func(l *Loan) bool {
		cp := *l
		out = append(out, &cp)
		return true
	})
	return out, nil
}

func (t memTx) PutLoan(l *Loan) error {
	if _, ok := t.s.accounts.Get(&Account{Email: l.Email}); !ok {
		return ErrAccountNotFound
	}
	if _, ok := t.s.books.Get(&Book{ISBN: l.ISBN}); !ok {
		return ErrBookNotFound
	}
	cp := *l
	t.s.loans.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) DeleteLoan(email, isbn string) error {
	if _, ok := t.s.loans.Delete(&Loan{Email: email, ISBN: isbn}); !ok {
		return ErrLoanNotFound
	}
	return nil
}

func (t memTx) AppendFine(f *Fine) error {
	if _, ok := t.s.accounts.Get(&Account{Email: f.Email}); !ok {
		return ErrAccountNotFound
	}
	t.s.fines[f.Email] = append(t.s.fines[f.Email], *f)
	return nil
}
