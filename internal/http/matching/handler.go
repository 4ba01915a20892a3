package matching

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tgerdes/paymatch/internal/invoice"
	"github.com/tgerdes/paymatch/internal/matching"
	"github.com/tgerdes/paymatch/internal/transaction"
)

type Handler struct {
	svc           *matching.Service
	minConfidence float64
}

// NewHandler wires the matching endpoints. minConfidence is the default
// commit threshold for auto-match runs that do not send their own.
func NewHandler(svc *matching.Service, minConfidence float64) *Handler {
	return &Handler{svc: svc, minConfidence: minConfidence}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/auto-match", h.autoMatch)
	r.Post("/match", h.manualMatch)
}

type autoMatchRequest struct {
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

type autoMatchResponse struct {
	Stats matching.Stats `json:"stats"`
}

func (h *Handler) autoMatch(w http.ResponseWriter, r *http.Request) {
	minConfidence := h.minConfidence

	// The body is optional; an empty POST runs with the configured default.
	var req autoMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.MinConfidence != nil {
		if *req.MinConfidence < 0 || *req.MinConfidence > 1 {
			http.Error(w, "min_confidence must be between 0 and 1", http.StatusBadRequest)
			return
		}

		minConfidence = *req.MinConfidence
	}

	stats, err := h.svc.AutoMatchAll(r.Context(), minConfidence)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(autoMatchResponse{Stats: stats}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type manualMatchRequest struct {
	TransactionID string `json:"transaction_id"`
	InvoiceNumber string `json:"invoice_number"`
}

type manualMatchResponse struct {
	Matched bool `json:"matched"`
}

func (h *Handler) manualMatch(w http.ResponseWriter, r *http.Request) {
	var req manualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.TransactionID == "" || req.InvoiceNumber == "" {
		http.Error(w, "transaction_id and invoice_number are required", http.StatusBadRequest)
		return
	}

	err := h.svc.ManualMatch(r.Context(), req.TransactionID, req.InvoiceNumber)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrNotFound):
			http.Error(w, "invoice not found", http.StatusNotFound)
		case errors.Is(err, transaction.ErrNotFound):
			http.Error(w, "transaction not found", http.StatusNotFound)
		case errors.Is(err, matching.ErrInvoiceNotOpen):
			http.Error(w, "invoice is no longer open", http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(manualMatchResponse{Matched: true}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
