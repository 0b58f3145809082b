package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pmartineau/gestock/internal/adapter/storage"
	"github.com/pmartineau/gestock/internal/core/domain"
	"github.com/pmartineau/gestock/internal/core/service"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	products := service.NewProductService(store, logger)
	invoices := service.NewInvoiceService(store, products, logger)
	reports := service.NewReportService(store, 10)

	mux := http.NewServeMux()
	NewHTTPHandler(products, invoices, reports).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createProduct(t *testing.T, srv *httptest.Server, name string, quantity int, price string) domain.Product {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/products", map[string]any{
		"name":     name,
		"quantity": quantity,
		"price":    price,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d", resp.StatusCode)
	}
	var p domain.Product
	decode(t, resp, &p)
	return p
}

func TestAPI_InvoiceLifecycle(t *testing.T) {
	srv := setupServer(t)

	p := createProduct(t, srv, "Clavier", 5, "10.00")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", map[string]any{
		"customer_name":  "Dupont",
		"customer_email": "dupont@exemple.fr",
		"items": []map[string]any{
			{"product_id": p.ID, "quantity": 5},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var inv domain.Invoice
	decode(t, resp, &inv)
	if !inv.Subtotal.Equal(decimal.RequireFromString("50.00")) ||
		!inv.Tax.Equal(decimal.RequireFromString("10.00")) ||
		!inv.Total.Equal(decimal.RequireFromString("60.00")) {
		t.Errorf("unexpected totals: %s / %s / %s", inv.Subtotal, inv.Tax, inv.Total)
	}

	// Stock fully consumed.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/products/"+p.ID, nil)
	var got domain.Product
	decode(t, resp, &got)
	if got.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", got.Quantity)
	}

	// Second invoice for the same product is now sold out.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/invoices", map[string]any{
		"customer_name": "Martin",
		"items": []map[string]any{
			{"product_id": p.ID, "quantity": 1},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/invoices", nil)
	var invoices []domain.Invoice
	decode(t, resp, &invoices)
	if len(invoices) != 1 || invoices[0].ID != inv.ID {
		t.Errorf("expected exactly the committed invoice, got %+v", invoices)
	}
}

func TestAPI_InvoiceValidation(t *testing.T) {
	srv := setupServer(t)
	p := createProduct(t, srv, "Souris", 3, "15.00")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			"missing customer name",
			map[string]any{
				"customer_name": "",
				"items":         []map[string]any{{"product_id": p.ID, "quantity": 1}},
			},
			http.StatusBadRequest,
		},
		{
			"empty invoice",
			map[string]any{"customer_name": "Dupont", "items": []map[string]any{}},
			http.StatusBadRequest,
		},
		{
			"unknown product",
			map[string]any{
				"customer_name": "Dupont",
				"items":         []map[string]any{{"product_id": "absent", "quantity": 1}},
			},
			http.StatusNotFound,
		},
		{
			"zero quantity",
			map[string]any{
				"customer_name": "Dupont",
				"items":         []map[string]any{{"product_id": p.ID, "quantity": 0}},
			},
			http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", tc.body)
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}

	// None of the rejected drafts may have touched stock.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products/"+p.ID, nil)
	var got domain.Product
	decode(t, resp, &got)
	if got.Quantity != 3 {
		t.Errorf("stock mutated by rejected invoices: %d", got.Quantity)
	}
}

func TestAPI_ProductCRUD(t *testing.T) {
	srv := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/products", map[string]any{
		"name": "X", "quantity": 1, "price": "-1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative price: expected 400, got %d", resp.StatusCode)
	}

	p := createProduct(t, srv, "Cahier", 7, "3.50")

	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/products/"+p.ID, map[string]any{
		"price": "4.00", "category": "papeterie",
	})
	var updated domain.Product
	decode(t, resp, &updated)
	if !updated.Price.Equal(decimal.RequireFromString("4.00")) || updated.Category != "papeterie" {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Name != "Cahier" || updated.Quantity != 7 {
		t.Errorf("unset fields changed: %+v", updated)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/products/"+p.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/products/"+p.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/products/"+p.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPI_StockAdjustAndMovements(t *testing.T) {
	srv := setupServer(t)
	p := createProduct(t, srv, "Stylo", 5, "2.00")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/products/"+p.ID+"/stock", map[string]any{
		"delta": 10, "reason": "livraison",
	})
	var got domain.Product
	decode(t, resp, &got)
	if got.Quantity != 15 {
		t.Errorf("expected quantity 15, got %d", got.Quantity)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/products/"+p.ID+"/stock", map[string]any{
		"delta": -100,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for oversized consumption, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/movements", nil)
	var movements []domain.StockMovement
	decode(t, resp, &movements)
	if len(movements) != 1 || movements[0].Type != domain.MovementRestock || movements[0].Quantity != 10 {
		t.Errorf("expected a single restock movement, got %+v", movements)
	}
	if movements[0].Reason != "livraison" {
		t.Errorf("reason lost: %+v", movements[0])
	}
}

func TestAPI_Stats(t *testing.T) {
	srv := setupServer(t)

	a := createProduct(t, srv, "A", 3, "5.00")
	createProduct(t, srv, "B", 50, "2.00")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", map[string]any{
		"customer_name": "Dupont",
		"items":         []map[string]any{{"product_id": a.ID, "quantity": 2}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create invoice: expected 201, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stats", nil)
	var sum service.Summary
	decode(t, resp, &sum)

	if sum.TotalProducts != 2 || sum.TotalOrders != 1 {
		t.Errorf("unexpected counts: %+v", sum)
	}
	if sum.TotalStock != 51 {
		t.Errorf("expected total stock 51, got %d", sum.TotalStock)
	}
	if sum.LowStockProducts != 1 {
		t.Errorf("expected 1 low-stock product, got %d", sum.LowStockProducts)
	}
	// 2 * 5.00 = 10.00 subtotal, 2.00 tax
	if !sum.TotalRevenue.Equal(decimal.RequireFromString("12.00")) {
		t.Errorf("expected revenue 12.00, got %s", sum.TotalRevenue)
	}
}

func TestAPI_CSVExport(t *testing.T) {
	srv := setupServer(t)
	createProduct(t, srv, "Clavier", 5, "10.00")

	resp, err := http.Get(srv.URL + "/api/products/export")
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,name,category") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Clavier") || !strings.Contains(lines[1], "10.00") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
