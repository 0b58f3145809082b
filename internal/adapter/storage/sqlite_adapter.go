package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/pmartineau/gestock/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	position   INTEGER PRIMARY KEY,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS invoices (
	position       INTEGER PRIMARY KEY,
	id             TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	customer_email TEXT NOT NULL DEFAULT '',
	items          TEXT NOT NULL,
	subtotal       TEXT NOT NULL,
	tax            TEXT NOT NULL,
	total          TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stock_movements (
	position   INTEGER PRIMARY KEY,
	id         TEXT NOT NULL,
	product_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);`

// SQLiteStore persists the collections in an embedded SQLite database.
// Save replaces a whole collection in one transaction; Load returns rows
// in saved order. Money is stored as decimal strings, timestamps as
// RFC 3339.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite allows a single writer per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, quantity, price, category, created_at, updated_at
		FROM products ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		var price, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &price, &p.Category, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLiteStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	for i, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (position, id, name, quantity, price, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, p.ID, p.Name, p.Quantity, p.Price.String(), p.Category,
			p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, customer_email, items, subtotal, tax, total, created_at
		FROM invoices ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		var inv domain.Invoice
		var items, subtotal, tax, total, createdAt string
		if err := rows.Scan(&inv.ID, &inv.CustomerName, &inv.CustomerEmail, &items, &subtotal, &tax, &total, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
			return nil, fmt.Errorf("decode invoice items: %w", err)
		}
		if inv.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("parse subtotal: %w", err)
		}
		if inv.Tax, err = decimal.NewFromString(tax); err != nil {
			return nil, fmt.Errorf("parse tax: %w", err)
		}
		if inv.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		if inv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *SQLiteStore) SaveInvoices(ctx context.Context, invoices []domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices`); err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	for i, inv := range invoices {
		items, err := json.Marshal(inv.Items)
		if err != nil {
			return fmt.Errorf("encode invoice items: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoices (position, id, customer_name, customer_email, items, subtotal, tax, total, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, inv.ID, inv.CustomerName, inv.CustomerEmail, string(items),
			inv.Subtotal.String(), inv.Tax.String(), inv.Total.String(),
			inv.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadMovements(ctx context.Context) ([]domain.StockMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity, reason, created_at
		FROM stock_movements ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query stock movements: %w", err)
	}
	defer rows.Close()

	movements := []domain.StockMovement{}
	for rows.Next() {
		var m domain.StockMovement
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *SQLiteStore) SaveMovements(ctx context.Context, movements []domain.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_movements`); err != nil {
		return fmt.Errorf("clear stock movements: %w", err)
	}
	for i, m := range movements {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (position, id, product_id, type, quantity, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, m.ID, m.ProductID, string(m.Type), m.Quantity, m.Reason,
			m.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
	}
	return tx.Commit()
}
