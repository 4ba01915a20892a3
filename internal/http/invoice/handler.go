package invoice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/importer"
	"github.com/tgerdes/paymatch/internal/invoice"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/invoices", h.save)
	r.Get("/invoices/open", h.listOpen)
}

type saveInvoiceRequest struct {
	InvoiceNumber    string `json:"invoice_number"`
	InvoiceDate      string `json:"invoice_date,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
	AmountNetCents   int64  `json:"amount_net_cents,omitempty"`
	AmountTaxCents   int64  `json:"amount_tax_cents,omitempty"`
	AmountTotalCents int64  `json:"amount_total_cents"`
	Currency         string `json:"currency,omitempty"`
	VendorName       string `json:"vendor_name,omitempty"`
	CustomerName     string `json:"customer_name,omitempty"`
	Direction        string `json:"direction,omitempty"`
	DocumentHash     string `json:"document_hash,omitempty"`
	DocumentLink     string `json:"document_link,omitempty"`
}

type saveInvoiceResponse struct {
	ID            uuid.UUID      `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	Status        invoice.Status `json:"status"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.InvoiceNumber == "" {
		http.Error(w, "invoice_number is required", http.StatusBadRequest)
		return
	}

	invoiceDate, err := parseOptionalDate(req.InvoiceDate)
	if err != nil {
		http.Error(w, "invalid invoice_date", http.StatusBadRequest)
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date", http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Save(r.Context(), invoice.SaveParams{
		InvoiceNumber: req.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		AmountNet:     req.AmountNetCents,
		AmountTax:     req.AmountTaxCents,
		AmountTotal:   req.AmountTotalCents,
		Currency:      req.Currency,
		VendorName:    req.VendorName,
		CustomerName:  req.CustomerName,
		Direction:     invoice.Direction(req.Direction),
		DocumentHash:  req.DocumentHash,
		DocumentLink:  req.DocumentLink,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	err = json.NewEncoder(w).Encode(saveInvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
	})
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type invoiceResponse struct {
	ID               uuid.UUID         `json:"id"`
	InvoiceNumber    string            `json:"invoice_number"`
	InvoiceDate      *time.Time        `json:"invoice_date,omitempty"`
	DueDate          *time.Time        `json:"due_date,omitempty"`
	AmountTotalCents int64             `json:"amount_total_cents"`
	Currency         string            `json:"currency"`
	VendorName       string            `json:"vendor_name,omitempty"`
	CustomerName     string            `json:"customer_name,omitempty"`
	Direction        invoice.Direction `json:"direction"`
	Status           invoice.Status    `json:"status"`
}

type listOpenResponse struct {
	Count    int               `json:"count"`
	Invoices []invoiceResponse `json:"invoices"`
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	direction := invoice.Direction(r.URL.Query().Get("direction"))

	invoices, err := h.svc.ListUnpaid(r.Context(), direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := listOpenResponse{
		Count:    len(invoices),
		Invoices: make([]invoiceResponse, 0, len(invoices)),
	}

	for _, inv := range invoices {
		resp.Invoices = append(resp.Invoices, invoiceResponse{
			ID:               inv.ID,
			InvoiceNumber:    inv.InvoiceNumber,
			InvoiceDate:      inv.InvoiceDate,
			DueDate:          inv.DueDate,
			AmountTotalCents: inv.AmountTotal,
			Currency:         inv.Currency,
			VendorName:       inv.VendorName,
			CustomerName:     inv.CustomerName,
			Direction:        inv.Direction,
			Status:           inv.Status,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := importer.ParseGermanDate(s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
