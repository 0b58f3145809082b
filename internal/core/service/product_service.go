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
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidName       = errors.New("invalid product name")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductService is the stock ledger. All product mutations go through it,
// and ApplyDelta is the only path that adjusts stock, so the non-negative
// quantity invariant is enforced at the point of mutation.
type ProductService struct {
	store  port.RecordStore
	logger *slog.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewProductService(store port.RecordStore, logger *slog.Logger) *ProductService {
	return &ProductService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type CreateProductInput struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Category string
}

// UpdateProductInput enumerates the fields a partial update may change.
// Nil means "leave as is".
type UpdateProductInput struct {
	Name     *string
	Quantity *int
	Price    *decimal.Decimal
	Category *string
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load products: %w", err)
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Product{}, ErrInvalidName
	}
	if in.Quantity < 0 {
		return domain.Product{}, ErrInvalidQuantity
	}
	if in.Price.IsNegative() {
		return domain.Product{}, ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load products: %w", err)
	}

	now := s.now()
	p := domain.Product{
		ID:        s.newID(),
		Name:      in.Name,
		Quantity:  in.Quantity,
		Price:     in.Price,
		Category:  in.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	products = append(products, p)
	if err := s.store.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("save products: %w", err)
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id string, in UpdateProductInput) (domain.Product, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.Product{}, ErrInvalidName
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return domain.Product{}, ErrInvalidQuantity
	}
	if in.Price != nil && in.Price.IsNegative() {
		return domain.Product{}, ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load products: %w", err)
	}

	idx := -1
	for i, p := range products {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	p := products[idx]
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	p.UpdatedAt = s.now()

	products[idx] = p
	if err := s.store.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("save products: %w", err)
	}
	return p, nil
}

// ApplyDelta adjusts a product's stock by delta, negative for consumption
// and positive for restock. The resulting quantity must stay >= 0, checked
// here under the ledger lock rather than at validation time. Each applied
// delta is journaled as a stock movement; journaling is advisory and a
// failed journal write never fails the stock operation.
func (s *ProductService) ApplyDelta(ctx context.Context, id string, delta int, movement domain.MovementType, reason string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load products: %w", err)
	}

	idx := -1
	for i, p := range products {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	p := products[idx]
	if p.Quantity+delta < 0 {
		return domain.Product{}, fmt.Errorf("%w: product %s has %d, delta %d", ErrInsufficientStock, id, p.Quantity, delta)
	}

	p.Quantity += delta
	p.UpdatedAt = s.now()
	products[idx] = p

	if err := s.store.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, fmt.Errorf("save products: %w", err)
	}

	s.journal(ctx, domain.StockMovement{
		ID:        s.newID(),
		ProductID: id,
		Type:      movement,
		Quantity:  delta,
		Reason:    reason,
		CreatedAt: s.now(),
	})

	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return false, fmt.Errorf("load products: %w", err)
	}

	kept := products[:0]
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return false, nil
	}

	if err := s.store.SaveProducts(ctx, kept); err != nil {
		return false, fmt.Errorf("save products: %w", err)
	}
	return true, nil
}

func (s *ProductService) journal(ctx context.Context, m domain.StockMovement) {
	movements, err := s.store.LoadMovements(ctx)
	if err != nil {
		s.logger.Warn("load stock movements failed, skipping journal entry", "product_id", m.ProductID, "error", err)
		return
	}
	movements = append(movements, m)
	if err := s.store.SaveMovements(ctx, movements); err != nil {
		s.logger.Warn("journal stock movement failed", "product_id", m.ProductID, "error", err)
	}
}
