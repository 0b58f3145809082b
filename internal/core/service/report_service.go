package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pmartineau/gestock/internal/core/domain"
	"github.com/pmartineau/gestock/internal/port"
)

type Summary struct {
	TotalProducts    int             `json:"total_products"`
	TotalStock       int             `json:"total_stock"`
	LowStockProducts int             `json:"low_stock_products"`
	TotalOrders      int             `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue   decimal.Decimal `json:"monthly_revenue"`
}

// ReportService is read-only over the record store.
type ReportService struct {
	store             port.RecordStore
	lowStockThreshold int
	now               func() time.Time
}

func NewReportService(store port.RecordStore, lowStockThreshold int) *ReportService {
	return &ReportService{
		store:             store,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (s *ReportService) Summary(ctx context.Context) (Summary, error) {
	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load products: %w", err)
	}
	invoices, err := s.store.LoadInvoices(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load invoices: %w", err)
	}

	sum := Summary{
		TotalProducts:  len(products),
		TotalOrders:    len(invoices),
		TotalRevenue:   decimal.Zero,
		MonthlyRevenue: decimal.Zero,
	}
	for _, p := range products {
		sum.TotalStock += p.Quantity
		if p.Quantity < s.lowStockThreshold {
			sum.LowStockProducts++
		}
	}

	monthAgo := s.now().AddDate(0, 0, -30)
	for _, inv := range invoices {
		sum.TotalRevenue = sum.TotalRevenue.Add(inv.Total)
		if inv.CreatedAt.After(monthAgo) {
			sum.MonthlyRevenue = sum.MonthlyRevenue.Add(inv.Total)
		}
	}
	return sum, nil
}

func (s *ReportService) Movements(ctx context.Context) ([]domain.StockMovement, error) {
	movements, err := s.store.LoadMovements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock movements: %w", err)
	}
	return movements, nil
}
