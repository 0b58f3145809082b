package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat VAT rate applied to every invoice.
var TaxRate = decimal.NewFromFloat(0.20)

// InvoiceItem snapshots a product's name and price at the moment it is
// added to a draft. The snapshot is frozen into the invoice at commit and
// never tracks later product changes.
type InvoiceItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice is immutable once persisted. Totals are computed from the item
// snapshots stored on the invoice, never from live product prices.
type Invoice struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Items         []InvoiceItem   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type InvoiceTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, tax and total from line items.
// Tax is rounded to 2 decimal places.
func ComputeTotals(items []InvoiceItem) InvoiceTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return InvoiceTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
