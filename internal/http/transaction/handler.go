package transaction

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/importer"
	"github.com/tgerdes/paymatch/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/import-transaction", h.importTransaction)
	r.Get("/unmatched", h.unmatched)
	r.Get("/statistics", h.statistics)
}

type importTransactionRequest struct {
	TransactionID   string `json:"transaction_id"`
	TransactionDate string `json:"transaction_date"`
	ValueDate       string `json:"value_date,omitempty"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`
	SenderIBAN      string `json:"sender_iban,omitempty"`
	ReceiverName    string `json:"receiver_name,omitempty"`
	ReceiverIBAN    string `json:"receiver_iban,omitempty"`
	Purpose         string `json:"purpose,omitempty"`
	Reference       string `json:"reference,omitempty"`
}

type importTransactionResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Created       bool      `json:"created"`
}

func (h *Handler) importTransaction(w http.ResponseWriter, r *http.Request) {
	var req importTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.TransactionID == "" {
		http.Error(w, "transaction_id is required", http.StatusBadRequest)
		return
	}

	txDate, err := importer.ParseGermanDate(req.TransactionDate)
	if err != nil {
		http.Error(w, "invalid transaction_date", http.StatusBadRequest)
		return
	}

	var valueDate *time.Time

	if req.ValueDate != "" {
		vd, err := importer.ParseGermanDate(req.ValueDate)
		if err != nil {
			http.Error(w, "invalid value_date", http.StatusBadRequest)
			return
		}

		valueDate = &vd
	}

	tx, created, err := h.svc.Import(r.Context(), transaction.ImportParams{
		TransactionID:   req.TransactionID,
		TransactionDate: txDate,
		ValueDate:       valueDate,
		Amount:          req.AmountCents,
		Currency:        req.Currency,
		SenderName:      req.SenderName,
		SenderIBAN:      req.SenderIBAN,
		ReceiverName:    req.ReceiverName,
		ReceiverIBAN:    req.ReceiverIBAN,
		Purpose:         req.Purpose,
		Reference:       req.Reference,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if created {
		w.WriteHeader(http.StatusCreated)
	}

	if err := json.NewEncoder(w).Encode(importTransactionResponse{
		TransactionID: tx.ID,
		Created:       created,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type transactionResponse struct {
	ID              uuid.UUID        `json:"id"`
	TransactionID   string           `json:"transaction_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	AmountCents     int64            `json:"amount_cents"`
	Currency        string           `json:"currency"`
	SenderName      string           `json:"sender_name,omitempty"`
	ReceiverName    string           `json:"receiver_name,omitempty"`
	Purpose         string           `json:"purpose,omitempty"`
	Reference       string           `json:"reference,omitempty"`
	Type            transaction.Type `json:"type"`
	CreatedAt       time.Time        `json:"created_at"`
}

type unmatchedResponse struct {
	Count        int                   `json:"count"`
	Transactions []transactionResponse `json:"transactions"`
}

func (h *Handler) unmatched(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListUnmatched(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := unmatchedResponse{
		Count:        len(txs),
		Transactions: make([]transactionResponse, 0, len(txs)),
	}

	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, toResponse(tx))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type statisticsResponse struct {
	TotalTransactions int64   `json:"total_transactions"`
	MatchedCount      int64   `json:"matched_count"`
	UnmatchedCount    int64   `json:"unmatched_count"`
	MatchRate         float64 `json:"match_rate"`
	MatchedAmount     int64   `json:"matched_amount"`
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	err = json.NewEncoder(w).Encode(statisticsResponse{
		TotalTransactions: stats.TotalTransactions,
		MatchedCount:      stats.MatchedCount,
		UnmatchedCount:    stats.UnmatchedCount,
		MatchRate:         stats.MatchRate,
		MatchedAmount:     stats.MatchedAmount,
	})
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		TransactionID:   tx.TransactionID,
		TransactionDate: tx.TransactionDate,
		ValueDate:       tx.ValueDate,
		AmountCents:     tx.Amount,
		Currency:        tx.Currency,
		SenderName:      tx.SenderName,
		ReceiverName:    tx.ReceiverName,
		Purpose:         tx.Purpose,
		Reference:       tx.Reference,
		Type:            tx.Type,
		CreatedAt:       tx.CreatedAt,
	}
}
