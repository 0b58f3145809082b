package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pmartineau/gestock/internal/core/domain"
	"github.com/pmartineau/gestock/internal/port"
)

var (
	ErrMissingCustomerName = errors.New("missing customer name")
	ErrEmptyInvoice        = errors.New("empty invoice")
	ErrIndexOutOfRange     = errors.New("item index out of range")
)

// Draft is an in-progress, uncommitted invoice. Items are ordered and hold
// one line per product; adding the same product twice merges quantities.
type Draft struct {
	CustomerName  string
	CustomerEmail string
	Items         []domain.InvoiceItem
}

func (d *Draft) RemoveItem(i int) error {
	if i < 0 || i >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	return nil
}

// Totals is pure and side-effect free, callable repeatedly as the draft
// changes.
func (d *Draft) Totals() domain.InvoiceTotals {
	return domain.ComputeTotals(d.Items)
}

// Validate checks the draft is committable. Stock is not re-checked here;
// that happens at AddItem time and again atomically at commit.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return ErrMissingCustomerName
	}
	if len(d.Items) == 0 {
		return ErrEmptyInvoice
	}
	return nil
}

// InvoiceService builds drafts against live stock and commits them. A
// single mutex spans delta application and invoice persistence so commits
// never interleave.
type InvoiceService struct {
	store    port.RecordStore
	products *ProductService
	logger   *slog.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewInvoiceService(store port.RecordStore, products *ProductService, logger *slog.Logger) *InvoiceService {
	return &InvoiceService{
		store:    store,
		products: products,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *InvoiceService) List(ctx context.Context) ([]domain.Invoice, error) {
	invoices, err := s.store.LoadInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	return invoices, nil
}

// AddItem appends a line snapshotting the product's current name and price,
// or merges quantities if the product already has a line. The merged
// quantity is validated against current stock; on failure the draft is left
// unchanged.
func (s *InvoiceService) AddItem(ctx context.Context, d *Draft, productID string, quantity int) error {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for i, it := range d.Items {
		if it.ProductID != productID {
			continue
		}
		merged := it.Quantity + quantity
		if merged > p.Quantity {
			return fmt.Errorf("%w: product %s has %d, draft needs %d", ErrInsufficientStock, productID, p.Quantity, merged)
		}
		d.Items[i].Quantity = merged
		d.Items[i].Total = it.UnitPrice.Mul(decimal.NewFromInt(int64(merged)))
		return nil
	}

	if quantity > p.Quantity {
		return fmt.Errorf("%w: product %s has %d, draft needs %d", ErrInsufficientStock, productID, p.Quantity, quantity)
	}

	d.Items = append(d.Items, domain.InvoiceItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		Total:       p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	})
	return nil
}

// Commit turns a validated draft into a persisted invoice while
// decrementing stock, all-or-nothing from the caller's perspective. Stock
// deltas only ever go through the ledger's ApplyDelta; if any step fails,
// already-applied deltas are compensated before the error returns.
func (s *InvoiceService) Commit(ctx context.Context, d *Draft) (domain.Invoice, error) {
	if err := d.Validate(); err != nil {
		return domain.Invoice{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every line against a fresh read first, so an oversized draft
	// fails before any mutation and the stored collections stay untouched.
	products, err := s.products.List(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, it := range d.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return domain.Invoice{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if it.Quantity > p.Quantity {
			return domain.Invoice{}, fmt.Errorf("%w: product %s has %d, invoice needs %d", ErrInsufficientStock, p.ID, p.Quantity, it.Quantity)
		}
	}

	applied := 0
	for _, it := range d.Items {
		if _, err := s.products.ApplyDelta(ctx, it.ProductID, -it.Quantity, domain.MovementSale, "invoice sale"); err != nil {
			s.rollback(ctx, d.Items[:applied])
			return domain.Invoice{}, err
		}
		applied++
	}

	totals := d.Totals()
	inv := domain.Invoice{
		ID:            s.newID(),
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		Items:         append([]domain.InvoiceItem(nil), d.Items...),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		CreatedAt:     s.now(),
	}

	invoices, err := s.store.LoadInvoices(ctx)
	if err != nil {
		s.rollback(ctx, d.Items)
		return domain.Invoice{}, fmt.Errorf("load invoices: %w", err)
	}
	invoices = append(invoices, inv)
	if err := s.store.SaveInvoices(ctx, invoices); err != nil {
		s.rollback(ctx, d.Items)
		return domain.Invoice{}, fmt.Errorf("persist invoice: %w", err)
	}

	return inv, nil
}

// rollback compensates already-applied deltas after a failed commit. A
// failed compensation leaves stock inconsistent and is logged loudly; the
// caller still sees only the terminal commit error.
func (s *InvoiceService) rollback(ctx context.Context, items []domain.InvoiceItem) {
	for _, it := range items {
		if _, err := s.products.ApplyDelta(ctx, it.ProductID, it.Quantity, domain.MovementAdjustment, "invoice rollback"); err != nil {
			s.logger.Error("rollback failed, stock may be inconsistent",
				"product_id", it.ProductID, "quantity", it.Quantity, "error", err)
		}
	}
}
