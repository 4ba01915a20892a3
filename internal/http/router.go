package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tgerdes/paymatch/internal/http/importcsv"
	"github.com/tgerdes/paymatch/internal/http/invoice"
	"github.com/tgerdes/paymatch/internal/http/matching"
	"github.com/tgerdes/paymatch/internal/http/transaction"
)

type Options struct {
	// CORSOrigin is the allowed browser origin; empty disables CORS headers.
	CORSOrigin string
	// JWTSecret enables bearer-token auth on all endpoints except /health
	// when non-empty.
	JWTSecret string
}

func New(
	opts Options,
	transactions *transaction.Handler,
	importCSV *importcsv.Handler,
	matches *matching.Handler,
	invoices *invoice.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.CORSOrigin != "" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{opts.CORSOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}

	router.Get("/health", health)

	router.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(RequireJWT(opts.JWTSecret))
		}

		transactions.Routes(r)
		importCSV.Routes(r)
		matches.Routes(r)
		invoices.Routes(r)
	})

	return router
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
