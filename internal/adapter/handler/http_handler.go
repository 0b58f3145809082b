package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pmartineau/gestock/internal/core/domain"
	"github.com/pmartineau/gestock/internal/core/service"
)

// HTTPHandler is the UI-facing surface. It translates JSON requests into
// core calls and service errors into status codes; all business rules live
// in the services.
type HTTPHandler struct {
	products *service.ProductService
	invoices *service.InvoiceService
	reports  *service.ReportService
}

func NewHTTPHandler(products *service.ProductService, invoices *service.InvoiceService, reports *service.ReportService) *HTTPHandler {
	return &HTTPHandler{products: products, invoices: invoices, reports: reports}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("GET /api/products/export", h.ExportProductsCSV)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PATCH /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)
	mux.HandleFunc("POST /api/products/{id}/stock", h.AdjustStock)

	mux.HandleFunc("GET /api/invoices", h.ListInvoices)
	mux.HandleFunc("POST /api/invoices", h.CreateInvoice)
	mux.HandleFunc("GET /api/invoices/export", h.ExportInvoicesCSV)

	mux.HandleFunc("GET /api/movements", h.ListMovements)
	mux.HandleFunc("GET /api/stats", h.Stats)
}

type createProductRequest struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type updateProductRequest struct {
	Name     *string          `json:"name"`
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Category *string          `json:"category"`
}

type adjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type invoiceLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createInvoiceRequest struct {
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	Items         []invoiceLineRequest `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.products.Create(r.Context(), service.CreateProductInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.products.Update(r.Context(), r.PathValue("id"), service.UpdateProductInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	removed, err := h.products.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "product not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	movement := domain.MovementAdjustment
	if req.Delta > 0 {
		movement = domain.MovementRestock
	}
	p, err := h.products.ApplyDelta(r.Context(), r.PathValue("id"), req.Delta, movement, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *HTTPHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	draft := &service.Draft{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	}
	for _, line := range req.Items {
		if err := h.invoices.AddItem(r.Context(), draft, line.ProductID, line.Quantity); err != nil {
			writeError(w, err)
			return
		}
	}

	inv, err := h.invoices.Commit(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *HTTPHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.reports.Movements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.reports.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *HTTPHandler) ExportProductsCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "name", "category", "quantity", "unit_price", "stock_value", "updated_at"})
	for _, p := range products {
		value := p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
		cw.Write([]string{
			p.ID,
			p.Name,
			p.Category,
			strconv.Itoa(p.Quantity),
			p.Price.StringFixed(2),
			value.StringFixed(2),
			p.UpdatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func (h *HTTPHandler) ExportInvoicesCSV(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "customer_name", "customer_email", "items", "subtotal", "tax", "total", "created_at"})
	for _, inv := range invoices {
		cw.Write([]string{
			inv.ID,
			inv.CustomerName,
			inv.CustomerEmail,
			strconv.Itoa(len(inv.Items)),
			inv.Subtotal.StringFixed(2),
			inv.Tax.StringFixed(2),
			inv.Total.StringFixed(2),
			inv.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrInsufficientStock):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrMissingCustomerName),
		errors.Is(err, service.ErrEmptyInvoice),
		errors.Is(err, service.ErrIndexOutOfRange):
		status = http.StatusBadRequest
		message = err.Error()
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
