package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/tgerdes/paymatch/cmd/tui/internal/view"
	"github.com/tgerdes/paymatch/internal/config"
	"github.com/tgerdes/paymatch/internal/database"
	"github.com/tgerdes/paymatch/internal/importer"
	invoiceStore "github.com/tgerdes/paymatch/internal/invoice/store"
	"github.com/tgerdes/paymatch/internal/matching"
	matchingStore "github.com/tgerdes/paymatch/internal/matching/store"
	"github.com/tgerdes/paymatch/internal/transaction"
	txStore "github.com/tgerdes/paymatch/internal/transaction/store"
)

type model struct {
	txService       *transaction.Service
	matchingService *matching.Service
	importService   *importer.Service
	minConfidence   float64

	currentView View

	importView    view.ImportModel
	unmatchedView view.UnmatchedModel
	statsView     view.StatisticsModel
}

type View int

const (
	ViewMenu       View = 0
	ViewImport     View = 1
	ViewUnmatched  View = 2
	ViewStatistics View = 3
)

func initialModel() model {
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

	invoiceRepo := invoiceStore.New(db)
	txRepo := txStore.New(db)

	txSvc := transaction.NewService(txRepo)
	impSvc := importer.NewService(txSvc)
	matchSvc := matching.NewService(invoiceRepo, txRepo, matchingStore.New(db), matching.Config{
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

	return model{
		txService:       txSvc,
		matchingService: matchSvc,
		importService:   impSvc,
		minConfidence:   cfg.Matching.MinConfidence,
		currentView:     ViewMenu,
		importView:      view.NewImportModel(impSvc),
		unmatchedView:   view.NewUnmatchedModel(txSvc, matchSvc, cfg.Matching.MinConfidence),
		statsView:       view.NewStatisticsModel(txSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				return m, m.importView.Init()
			case "2":
				m.currentView = ViewUnmatched
				m.unmatchedView = view.NewUnmatchedModel(m.txService, m.matchingService, m.minConfidence)

				return m, m.unmatchedView.Init()
			case "3":
				m.currentView = ViewStatistics
				m.statsView = view.NewStatisticsModel(m.txService)

				return m, m.statsView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewUnmatched:
		var newModel tea.Model
		newModel, cmd = m.unmatchedView.Update(msg)
		m.unmatchedView = newModel.(view.UnmatchedModel)
	case ViewStatistics:
		var newModel tea.Model
		newModel, cmd = m.statsView.Update(msg)
		m.statsView = newModel.(view.StatisticsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Paymatch TUI\n\n" +
				"1. Import Bank CSV\n" +
				"2. Review Unmatched Transactions\n" +
				"3. Statistics\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View()
	case ViewUnmatched:
		return m.unmatchedView.View()
	case ViewStatistics:
		return m.statsView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
