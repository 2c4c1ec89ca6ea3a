package market

import (
	"context"
	"sync"

	"github.com/google/btree"
)

// MemoryStore keeps the shop in ordered in-memory indexes. Update holds the
// write lock and restores snapshots of every index if fn fails.
type MemoryStore struct {
	mu       sync.RWMutex
	products *btree.BTreeG[*Product]
	accounts *btree.BTreeG[*Account]
	receipts map[string][]Receipt
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: btree.NewG(16, func(a, b *Product) bool { return a.ID < b.ID }),
		accounts: btree.NewG(16, func(a, b *Account) bool { return a.Email < b.Email }),
		receipts: make(map[string][]Receipt),
		nextID:   1,
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

	products, accounts, nextID := s.products.Clone(), s.accounts.Clone(), s.nextID
	receipts := make(map[string][]Receipt, len(s.receipts))
	for k, v := range s.receipts {
		receipts[k] = v
	}

	if err := fn(memTx{s}); err != nil {
		s.products, s.accounts, s.receipts, s.nextID = products, accounts, receipts, nextID
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct{ s *MemoryStore }

func (t memTx) Product(id int64) (*Product, error) {
	p, ok := t.s.products.Get(&Product{ID: id})
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t memTx) Products() ([]*Product, error) {
	out := make([]*Product, 0, t.s.products.Len())
	t.s.products.Ascend(func(p *Product) bool {
		cp := *p
		out = append(out, &cp)
		return true
	})
	return out, nil
}

func (t memTx) CreateProduct(p *Product) error {
	p.ID = t.s.nextID
	t.s.nextID++
	cp := *p
	t.s.products.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) PutProduct(p *Product) error {
	if _, ok := t.s.products.Get(p); !ok {
		return ErrProductNotFound
	}
	cp := *p
	t.s.products.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) DeleteProduct(id int64) error {
	if _, ok := t.s.products.Delete(&Product{ID: id}); !ok {
		return ErrProductNotFound
	}
	return nil
}

func (t memTx) Account(email string) (*Account, error) {
	a, ok := t.s.accounts.Get(&Account{Email: email})
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (t memTx) Accounts() ([]*Account, error) {
	out := make([]*Account, 0, t.s.accounts.Len())
	t.s.accounts.Ascend(func(a *Account) bool {
		cp := *a
		out = append(out, &cp)
		return true
	})
	return out, nil
}

func (t memTx) PutAccount(a *Account) error {
	cp := *a
	t.s.accounts.ReplaceOrInsert(&cp)
	return nil
}

func (t memTx) AppendReceipt(r *Receipt) error {
	if _, ok := t.s.accounts.Get(&Account{Email: r.Email}); !ok {
		return ErrAccountNotFound
	}
	t.s.receipts[r.Email] = append(t.s.receipts[r.Email], *r)
	return nil
}

func (t memTx) Receipts(email string) ([]Receipt, error) {
	return append([]Receipt(nil), t.s.receipts[email]...), nil
}
