package port

import (
	"context"

	"github.com/pmartineau/gestock/internal/core/domain"
)

// RecordStore is the persistence boundary for the three collections.
// Load returns a collection in insertion order; Save replaces it wholesale.
// Each call is atomic: a reader never observes a partially written
// collection. Read-modify-write correctness is the caller's responsibility.
type RecordStore interface {
	LoadProducts(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error

	LoadInvoices(ctx context.Context) ([]domain.Invoice, error)
	SaveInvoices(ctx context.Context, invoices []domain.Invoice) error

	LoadMovements(ctx context.Context) ([]domain.StockMovement, error)
	SaveMovements(ctx context.Context, movements []domain.StockMovement) error
}
