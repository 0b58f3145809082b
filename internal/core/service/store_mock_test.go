package service

import (
	"context"
	"sync"

	"github.com/pmartineau/gestock/internal/core/domain"
)

// Mock RecordStore
type mockRecordStore struct {
	mu        sync.Mutex
	products  []domain.Product
	invoices  []domain.Invoice
	movements []domain.StockMovement

	saveProductsErr  error
	saveInvoicesErr  error
	saveMovementsErr error

	saveProductCalls int
	saveInvoiceCalls int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{}
}

func (m *mockRecordStore) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Product{}, m.products...), nil
}

func (m *mockRecordStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveProductCalls++
	if m.saveProductsErr != nil {
		return m.saveProductsErr
	}
	m.products = append([]domain.Product{}, products...)
	return nil
}

func (m *mockRecordStore) LoadInvoices(ctx context.Context) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Invoice{}, m.invoices...), nil
}

func (m *mockRecordStore) SaveInvoices(ctx context.Context, invoices []domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveInvoiceCalls++
	if m.saveInvoicesErr != nil {
		return m.saveInvoicesErr
	}
	m.invoices = append([]domain.Invoice{}, invoices...)
	return nil
}

func (m *mockRecordStore) LoadMovements(ctx context.Context) ([]domain.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StockMovement{}, m.movements...), nil
}

func (m *mockRecordStore) SaveMovements(ctx context.Context, movements []domain.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveMovementsErr != nil {
		return m.saveMovementsErr
	}
	m.movements = append([]domain.StockMovement{}, movements...)
	return nil
}
