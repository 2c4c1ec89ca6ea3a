package market

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"counter-desk/internal/auth"
)

// MarketManager applies the checkout rules on top of a Store. Sessions may
// be used from different goroutines, but each session's cart belongs to one
// of them.
type MarketManager struct {
	store    Store
	policy   Policy
	log      *zap.Logger
	now      func() time.Time
	validate *validator.Validate
}

type Option func(*MarketManager)

func WithPolicy(p Policy) Option { return func(m *MarketManager) { m.policy = p } }

func WithLogger(l *zap.Logger) Option { return func(m *MarketManager) { m.log = l } }

func WithClock(now func() time.Time) Option { return func(m *MarketManager) { m.now = now } }

func NewMarketManager(store Store, opts ...Option) *MarketManager {
	m := &MarketManager{
		store:    store,
		policy:   DefaultPolicy(),
		log:      zap.NewNop(),
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("market")
	return m
}

func (m *MarketManager) Close() error { return m.store.Close() }

func (m *MarketManager) Policy() Policy { return m.policy }

// ------------------ Accounts ------------------

// Login checks credentials and opens a session with an empty cart.
func (m *MarketManager) Login(ctx context.Context, email, password string) (*Session, error) {
	var acct *Account
	err := m.store.View(ctx, func(tx Tx) error {
		var err error
		acct, err = tx.Account(strings.TrimSpace(email))
		return err
	})
	if errors.Is(err, ErrAccountNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(acct.PasswordHash, password); err != nil {
		m.log.Debug("login rejected", zap.String("email", acct.Email))
		return nil, err
	}
	return &Session{Email: acct.Email, Role: acct.Role, Cart: NewCart()}, nil
}

// AddAccount registers a shop user with the initial credit. Admin only.
func (m *MarketManager) AddAccount(ctx context.Context, s *Session, email, password string, role Role) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	return m.createAccount(ctx, email, password, role)
}

func (m *MarketManager) createAccount(ctx context.Context, email, password string, role Role) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	acct := &Account{
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
		Credit:       m.policy.InitialCredit,
	}
	if err := m.validate.Struct(acct); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	err = m.store.Update(ctx, func(tx Tx) error {
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
	m.log.Info("account added", zap.String("email", acct.Email), zap.String("role", string(role)))
	return nil
}

func (m *MarketManager) Account(ctx context.Context, s *Session) (*Account, error) {
	var acct *Account
	err := m.store.View(ctx, func(tx Tx) error {
		var err error
		acct, err = tx.Account(s.Email)
		return err
	})
	return acct, err
}

// History lists the session account's receipts, oldest first.
func (m *MarketManager) History(ctx context.Context, s *Session) ([]Receipt, error) {
	var receipts []Receipt
	err := m.store.View(ctx, func(tx Tx) error {
		var err error
		receipts, err = tx.Receipts(s.Email)
		return err
	})
	return receipts, err
}

// ------------------ Catalog ------------------

// AddProduct adds a product and assigns it the next id. Admin only.
func (m *MarketManager) AddProduct(ctx context.Context, s *Session, name string, price float64, qty int) (*Product, error) {
	if !s.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	p := &Product{Name: strings.TrimSpace(name), Price: price, Quantity: qty}
	if err := m.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}
	if err := m.store.Update(ctx, func(tx Tx) error { return tx.CreateProduct(p) }); err != nil {
		return nil, err
	}
	m.log.Info("product added", zap.Int64("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// ModifyProduct replaces name, price and quantity of a product. Admin only.
func (m *MarketManager) ModifyProduct(ctx context.Context, s *Session, id int64, name string, price float64, qty int) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	return m.store.Update(ctx, func(tx Tx) error {
		p, err := tx.Product(id)
		if err != nil {
			return err
		}
		p.Name, p.Price, p.Quantity = strings.TrimSpace(name), price, qty
		if err := m.validate.Struct(p); err != nil {
			return fmt.Errorf("invalid product: %w", err)
		}
		return tx.PutProduct(p)
	})
}

// DeleteProduct removes a product. Admin only.
func (m *MarketManager) DeleteProduct(ctx context.Context, s *Session, id int64) error {
	if !s.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := m.store.Update(ctx, func(tx Tx) error { return tx.DeleteProduct(id) }); err != nil {
		return err
	}
	m.log.Info("product deleted", zap.Int64("id", id))
	return nil
}

func (m *MarketManager) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p *Product
	err := m.store.View(ctx, func(tx Tx) error {
		var err error
		p, err = tx.Product(id)
		return err
	})
	return p, err
}

// GetAllProducts lists the catalog sorted by name or price, ascending.
func (m *MarketManager) GetAllProducts(ctx context.Context, by SortBy) ([]*Product, error) {
	var products []*Product
	err := m.store.View(ctx, func(tx Tx) error {
		var err error
		products, err = tx.Products()
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(products, func(a, b *Product) int {
		if by == SortByPrice {
			return cmp.Compare(a.Price, b.Price)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return products, nil
}

// SearchProduct returns the first product whose name or id equals q,
// ignoring case.
func (m *MarketManager) SearchProduct(ctx context.Context, q string) (*Product, error) {
	q = strings.TrimSpace(q)
	products, err := m.GetAllProducts(ctx, SortByName)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, q) || strconv.FormatInt(p.ID, 10) == q {
			return p, nil
		}
	}
	return nil, ErrProductNotFound
}

// ------------------ Cart ------------------

// AddToCart adds qty of a product to the session cart. The product must
// exist and hold enough stock for the whole line.
func (m *MarketManager) AddToCart(ctx context.Context, s *Session, productID int64, qty int) error {
	if s.Role != RoleCustomer {
		return ErrPermissionDenied
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p.Quantity < s.Cart.Quantity(productID)+qty {
		return fmt.Errorf("%w: %d of %s left", ErrInsufficientStock, p.Quantity, p.Name)
	}
	s.Cart.Add(p, qty)
	return nil
}

// UpdateCartQuantity sets the quantity of a line already in the cart.
func (m *MarketManager) UpdateCartQuantity(ctx context.Context, s *Session, productID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Cart.Quantity(productID) == 0 {
		return ErrNotInCart
	}
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p.Quantity < qty {
		return fmt.Errorf("%w: %d of %s left", ErrInsufficientStock, p.Quantity, p.Name)
	}
	return s.Cart.Set(productID, qty)
}

// RemoveFromCart drops a line from the session cart.
func (m *MarketManager) RemoveFromCart(s *Session, productID int64) error {
	if !s.Cart.Remove(productID) {
		return ErrNotInCart
	}
	return nil
}

// ------------------ Checkout ------------------

// Pay charges the session cart to the account's credit at current catalog
// prices. It fails without changing anything when the cart is empty, a
// product is gone, stock no longer covers a line, or the total exceeds the
// credit. On success the cart is cleared.
func (m *MarketManager) Pay(ctx context.Context, s *Session) (*Payment, error) {
	if s.Role != RoleCustomer {
		return nil, ErrPermissionDenied
	}
	lines := s.Cart.Items()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var pay Payment
	err := m.store.Update(ctx, func(tx Tx) error {
		acct, err := tx.Account(s.Email)
		if err != nil {
			return err
		}

		products := make([]*Product, len(lines))
		summary := make([]string, len(lines))
		var total float64
		for i, line := range lines {
			p, err := tx.Product(line.ProductID)
			if err != nil {
				return fmt.Errorf("%s: %w", line.Name, err)
			}
			if p.Quantity < line.Quantity {
				return fmt.Errorf("%w: %d of %s left", ErrInsufficientStock, p.Quantity, p.Name)
			}
			products[i] = p
			summary[i] = fmt.Sprintf("%s x%d", p.Name, line.Quantity)
			total += p.Price * float64(line.Quantity)
		}
		if total > acct.Credit {
			return fmt.Errorf("%w: total ₹%.2f, credit ₹%.2f", ErrInsufficientCredit, total, acct.Credit)
		}

		acct.Credit -= total
		acct.TotalSpent += total
		pay.Reward = m.policy.Reward(total, acct.LoyaltyPoints)
		acct.LoyaltyPoints += pay.Reward.PointsEarned - pay.Reward.PointsRedeemed
		acct.Credit += pay.Reward.Bonus
		if err := tx.PutAccount(acct); err != nil {
			return err
		}

		for i, p := range products {
			p.Quantity -= lines[i].Quantity
			p.EverBought = true
			if err := tx.PutProduct(p); err != nil {
				return err
			}
		}

		pay.Receipt = Receipt{
			ID:       uuid.NewString(),
			Email:    acct.Email,
			Total:    total,
			Summary:  strings.Join(summary, ", "),
			IssuedAt: m.now(),
		}
		pay.Credit, pay.Points = acct.Credit, acct.LoyaltyPoints
		return tx.AppendReceipt(&pay.Receipt)
	})
	if err != nil {
		m.log.Debug("payment rejected", zap.String("email", s.Email), zap.Error(err))
		return nil, err
	}
	s.Cart.Clear()
	m.log.Info("payment accepted",
		zap.String("email", s.Email),
		zap.Float64("total", pay.Receipt.Total),
		zap.Float64("bonus", pay.Reward.Bonus),
		zap.Int("points", pay.Points))
	return &pay, nil
}
