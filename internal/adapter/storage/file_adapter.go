package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pmartineau/gestock/internal/core/domain"
)

const (
	productsFile  = "products.json"
	invoicesFile  = "invoices.json"
	movementsFile = "stock_movements.json"
)

// FileStore keeps each collection in a JSON file under a data directory.
// Writes go through a temp file and rename, so a crashed write leaves the
// previous file intact. A missing file reads as an empty collection.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := f.load(productsFile, &products); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

func (f *FileStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	return f.save(productsFile, products)
}

func (f *FileStore) LoadInvoices(ctx context.Context) ([]domain.Invoice, error) {
	invoices := []domain.Invoice{}
	if err := f.load(invoicesFile, &invoices); err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	return invoices, nil
}

func (f *FileStore) SaveInvoices(ctx context.Context, invoices []domain.Invoice) error {
	return f.save(invoicesFile, invoices)
}

func (f *FileStore) LoadMovements(ctx context.Context) ([]domain.StockMovement, error) {
	movements := []domain.StockMovement{}
	if err := f.load(movementsFile, &movements); err != nil {
		return nil, fmt.Errorf("load stock movements: %w", err)
	}
	return movements, nil
}

func (f *FileStore) SaveMovements(ctx context.Context, movements []domain.StockMovement) error {
	return f.save(movementsFile, movements)
}

func (f *FileStore) load(name string, out any) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *FileStore) save(name string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp := filepath.Join(f.dir, name+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
