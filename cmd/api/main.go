package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tgerdes/paymatch/internal/config"
	"github.com/tgerdes/paymatch/internal/database"
	paymatchHttp "github.com/tgerdes/paymatch/internal/http"
	importHandler "github.com/tgerdes/paymatch/internal/http/importcsv"
	invoiceHandler "github.com/tgerdes/paymatch/internal/http/invoice"
	matchingHandler "github.com/tgerdes/paymatch/internal/http/matching"
	txHandler "github.com/tgerdes/paymatch/internal/http/transaction"
	"github.com/tgerdes/paymatch/internal/importer"
	"github.com/tgerdes/paymatch/internal/invoice"
	invoiceStore "github.com/tgerdes/paymatch/internal/invoice/store"
	"github.com/tgerdes/paymatch/internal/matching"
	matchingStore "github.com/tgerdes/paymatch/internal/matching/store"
	"github.com/tgerdes/paymatch/internal/transaction"
	txStore "github.com/tgerdes/paymatch/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		invoiceRepo = invoiceStore.New(db)
		txRepo      = txStore.New(db)

		invoiceService     = invoice.NewService(invoiceRepo)
		transactionService = transaction.NewService(txRepo)
		importService      = importer.NewService(transactionService)
		matchingService    = matching.NewService(invoiceRepo, txRepo, matchingStore.New(db), matching.Config{
			Weights: matching.Weights{
				Amount:           cfg.Matching.AmountWeight,
				InvoiceNumber:    cfg.Matching.InvoiceNumberWeight,
				Name:             cfg.Matching.NameWeight,
				Date:             cfg.Matching.DateWeight,
				AmountCloseCents: cfg.Matching.AmountCloseCents,
			},
			Floor:     cfg.Matching.Floor,
			BandCents: cfg.Matching.CandidateBandCents,
		})
	)

	// Sweep invoices past their due date so the review views are current
	// from the first request on.
	if n, err := invoiceService.MarkOverdue(ctx, time.Now()); err != nil {
		slog.Error("overdue sweep failed", "error", err)
	} else if n > 0 {
		slog.Info("marked invoices overdue", "count", n)
	}

	router := paymatchHttp.New(
		paymatchHttp.Options{
			CORSOrigin: cfg.Server.CORSOrigin,
			JWTSecret:  cfg.Auth.JWTSecret,
		},
		txHandler.NewHandler(transactionService),
		importHandler.NewHandler(importService),
		matchingHandler.NewHandler(matchingService, cfg.Matching.MinConfidence),
		invoiceHandler.NewHandler(invoiceService),
	)

	addr := fmt.Sprintf(":%d", cfg.App.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "app", cfg.App.Name, "addr", addr)

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
