package importcsv

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tgerdes/paymatch/internal/importer"
)

type Handler struct {
	svc *importer.Service
}

func NewHandler(svc *importer.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/import-csv", h.importCSV)
}

type importRequest struct {
	// CSVContent is the raw export, base64-encoded so binary charsets
	// survive the JSON transport.
	CSVContent string `json:"csv_content"`
	Format     string `json:"format,omitempty"`
}

type importResponse struct {
	Stats importer.Stats `json:"stats"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.CSVContent == "" {
		http.Error(w, "csv_content is required", http.StatusBadRequest)
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.CSVContent)
	if err != nil {
		http.Error(w, "csv_content is not valid base64", http.StatusBadRequest)
		return
	}

	format := importer.Format(req.Format)
	if format == "" {
		format = importer.FormatAuto
	}

	if !format.Valid() {
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}

	stats, err := h.svc.Import(r.Context(), format, bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, importer.ErrUnknownFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(importResponse{Stats: stats}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
