package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed Store.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error { return d.db.Close() }

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            email TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('admin','customer')),
            credit REAL NOT NULL,
            loyalty_points INTEGER NOT NULL DEFAULT 0 CHECK (loyalty_points >= 0),
            total_spent REAL NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            price REAL NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            ever_bought BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS receipts (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL REFERENCES accounts(email),
            total REAL NOT NULL,
            summary TEXT NOT NULL,
            issued_at DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_email ON receipts(email);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return tx.Commit()
}

func (d *Database) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(&sqlTx{ctx: ctx, tx: tx})
}

func (d *Database) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

const productColumns = `id, name, price, quantity, ever_bought`

func (t *sqlTx) Product(id int64) (*Product, error) {
	var p Product
	err := t.tx.GetContext(t.ctx, &p, `SELECT `+productColumns+` FROM products WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *sqlTx) Products() ([]*Product, error) {
	var products []*Product
	if err := t.tx.SelectContext(t.ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY id`); err != nil {
		return nil, err
	}
	return products, nil
}

func (t *sqlTx) CreateProduct(p *Product) error {
	res, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO products(name, price, quantity, ever_bought)
        VALUES(:name, :price, :quantity, :ever_bought);`, p)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (t *sqlTx) PutProduct(p *Product) error {
	res, err := t.tx.NamedExecContext(t.ctx, `
        UPDATE products SET name=:name, price=:price, quantity=:quantity, ever_bought=:ever_bought
        WHERE id=:id;`, p)
	if err != nil {
		return err
	}
	return requireRows(res, ErrProductNotFound)
}

func (t *sqlTx) DeleteProduct(id int64) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireRows(res, ErrProductNotFound)
}

const accountColumns = `email, password_hash, role, credit, loyalty_points, total_spent`

func (t *sqlTx) Account(email string) (*Account, error) {
	var a Account
	err := t.tx.GetContext(t.ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE email=?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *sqlTx) Accounts() ([]*Account, error) {
	var accounts []*Account
	if err := t.tx.SelectContext(t.ctx, &accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY email`); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (t *sqlTx) PutAccount(a *Account) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO accounts(email, password_hash, role, credit, loyalty_points, total_spent)
        VALUES(:email, :password_hash, :role, :credit, :loyalty_points, :total_spent)
        ON CONFLICT(email) DO UPDATE SET
            password_hash=excluded.password_hash, role=excluded.role, credit=excluded.credit,
            loyalty_points=excluded.loyalty_points, total_spent=excluded.total_spent;`, a)
	return err
}

func (t *sqlTx) AppendReceipt(r *Receipt) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO receipts(id, email, total, summary, issued_at)
        VALUES(:id, :email, :total, :summary, :issued_at);`, r)
	return err
}

func (t *sqlTx) Receipts(email string) ([]Receipt, error) {
	var receipts []Receipt
	err := t.tx.SelectContext(t.ctx, &receipts,
		`SELECT id, email, total, summary, issued_at FROM receipts WHERE email=? ORDER BY rowid`, email)
	return receipts, err
}

// requireRows reports notFound when a statement touched no rows.
func requireRows(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
