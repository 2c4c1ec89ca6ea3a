package library

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
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Immediate transactions take the write lock up front, so a borrow never
	// fails halfway through upgrading a read lock.
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

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
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
            name TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('admin','borrower')),
            deposit REAL NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            cost INTEGER NOT NULL,
            borrow_count INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            email TEXT NOT NULL REFERENCES accounts(email),
            isbn TEXT NOT NULL REFERENCES books(isbn),
            started_on DATETIME NOT NULL,
            PRIMARY KEY (email, isbn)
        );`,
		`CREATE TABLE IF NOT EXISTS fines (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL REFERENCES accounts(email),
            isbn TEXT NOT NULL,
            amount REAL NOT NULL,
            days_late INTEGER NOT NULL,
            returned_on DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_fines_email ON fines(email);`,
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

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

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

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `isbn, name, author, quantity, cost, borrow_count`

func (t *sqlTx) Book(isbn string) (*Book, error) {
	var b Book
	err := t.tx.GetContext(t.ctx, &b, `SELECT `+bookColumns+` FROM books WHERE isbn=?`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *sqlTx) Books() ([]*Book, error) {
	var books []*Book
	if err := t.tx.SelectContext(t.ctx, &books, `SELECT `+bookColumns+` FROM books ORDER BY isbn`); err != nil {
		return nil, err
	}
	return books, nil
}

func (t *sqlTx) PutBook(b *Book) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO books(isbn, name, author, quantity, cost, borrow_count)
        VALUES(:isbn, :name, :author, :quantity, :cost, :borrow_count)
        ON CONFLICT(isbn) DO UPDATE SET
            name=excluded.name, author=excluded.author, quantity=excluded.quantity,
            cost=excluded.cost, borrow_count=excluded.borrow_count;`, b)
	return err
}

func (t *sqlTx) DeleteBook(isbn string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM books WHERE isbn=?`, isbn)
	if err != nil {
		return err
	}
	return requireRows(res, ErrBookNotFound)
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

const accountColumns = `email, name, password_hash, role, deposit`

func (t *sqlTx) Account(email string) (*Account, error) {
	var a Account
	err := t.tx.GetContext(t.ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE email=?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := t.load(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *sqlTx) Accounts() ([]*Account, error) {
	var accounts []*Account
	if err := t.tx.SelectContext(t.ctx, &accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY email`); err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if err := t.load(a); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// load attaches the borrowed set and fine history.
func (t *sqlTx) load(a *Account) error {
	if err := t.tx.SelectContext(t.ctx, &a.Borrowed,
		`SELECT isbn FROM loans WHERE email=? ORDER BY isbn`, a.Email); err != nil {
		return err
	}
	return t.tx.SelectContext(t.ctx, &a.Fines,
		`SELECT id, email, isbn, amount, days_late, returned_on FROM fines WHERE email=? ORDER BY rowid`, a.Email)
}

func (t *sqlTx) PutAccount(a *Account) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO accounts(email, name, password_hash, role, deposit)
        VALUES(:email, :name, :password_hash, :role, :deposit)
        ON CONFLICT(email) DO UPDATE SET
            name=excluded.name, password_hash=excluded.password_hash,
            role=excluded.role, deposit=excluded.deposit;`, a)
	return err
}

// ---------------------------------------------------------------------------
// Loans and fines
// ---------------------------------------------------------------------------

func (t *sqlTx) Loan(email, isbn string) (*Loan, error) {
	var l Loan
	err := t.tx.GetContext(t.ctx, &l, `SELECT email, isbn, started_on FROM loans WHERE email=? AND isbn=?`, email, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *sqlTx) Loans() ([]*Loan, error) {
	var loans []*Loan
	if err := t.tx.SelectContext(t.ctx, &loans, `SELECT email, isbn, started_on FROM loans ORDER BY email, isbn`); err != nil {
		return nil, err
	}
	return loans, nil
}

func (t *sqlTx) PutLoan(l *Loan) error {
	_, err := t.tx.ExecContext(t.ctx, `
        INSERT INTO loans(email, isbn, started_on) VALUES(?,?,?)
        ON CONFLICT(email, isbn) DO UPDATE SET started_on=excluded.started_on;`,
		l.Email, l.ISBN, l.StartedOn)
	return err
}

func (t *sqlTx) DeleteLoan(email, isbn string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM loans WHERE email=? AND isbn=?`, email, isbn)
	if err != nil {
		return err
	}
	return requireRows(res, ErrLoanNotFound)
}

func (t *sqlTx) AppendFine(f *Fine) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
        INSERT INTO fines(id, email, isbn, amount, days_late, returned_on)
        VALUES(:id, :email, :isbn, :amount, :days_late, :returned_on);`, f)
	return err
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
