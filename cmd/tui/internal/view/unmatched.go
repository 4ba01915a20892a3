package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgerdes/paymatch/internal/invoice"
	"github.com/tgerdes/paymatch/internal/matching"
	"github.com/tgerdes/paymatch/internal/transaction"
)

type unmatchedState int

const (
	unmatchedStateBrowse unmatchedState = iota
	unmatchedStateMatch
)

// UnmatchedModel shows the transactions without an invoice link and lets the
// operator match them by hand or fire an auto-match run over the backlog.
type UnmatchedModel struct {
	CommonModel
	txService       *transaction.Service
	matchingService *matching.Service
	minConfidence   float64

	state unmatchedState
	table table.Model
	txs   []*transaction.Transaction
	form  *huh.Form

	suggestion string

	loading bool
	err     error
	status  string

	formInvoiceNumber string
}

func NewUnmatchedModel(txSvc *transaction.Service, matchSvc *matching.Service, minConfidence float64) UnmatchedModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Amount", Width: 12},
		{Title: "Counterparty", Width: 25},
		{Title: "Purpose", Width: 45},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return UnmatchedModel{
		txService:       txSvc,
		matchingService: matchSvc,
		minConfidence:   minConfidence,
		table:           t,
	}
}

func (m UnmatchedModel) Title() string { return "Unmatched Transactions" }

func (m UnmatchedModel) ShortHelp() string {
	if m.state == unmatchedStateMatch {
		return "Enter: match | Esc: cancel"
	}

	return "Esc: back | Enter: match by hand | a: auto-match | r: refresh"
}

func (m UnmatchedModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m UnmatchedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadUnmatchedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.err = nil
		m.refreshTable()

		return m, nil

	case suggestionMsg:
		m.suggestion = msg.invoiceNumber
		return m.enterMatchMode()

	case autoMatchDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Auto-match failed: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Auto-match: %d matched, %d unmatched, %d low confidence.",
			msg.stats.Matched, msg.stats.Unmatched, msg.stats.LowConfidence)

		return m, m.loadCmd()

	case matchDoneMsg:
		m.state = unmatchedStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Match failed: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Matched to %s.", msg.invoiceNumber)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case unmatchedStateBrowse:
		return m.updateBrowse(msg)
	case unmatchedStateMatch:
		return m.updateMatch(msg)
	}

	return m, nil
}

func (m UnmatchedModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "a":
			m.status = "Running auto-match..."
			return m, m.autoMatchCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.txs) {
				return m, nil
			}

			return m, m.suggestCmd(m.txs[idx])
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m UnmatchedModel) enterMatchMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return m, nil
	}

	tx := m.txs[idx]

	m.formInvoiceNumber = m.suggestion

	title := fmt.Sprintf("Match %s %s (%s)",
		FormatDate(tx.TransactionDate), FormatAmount(tx.Amount), tx.SenderName)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("invoice_number").
				Title(title).
				Description("Invoice number to link this transaction to").
				Value(&m.formInvoiceNumber).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("invoice number cannot be empty")
					}
					return nil
				}),
		),
	).WithWidth(70).WithShowHelp(false)

	m.state = unmatchedStateMatch
	m.table.Blur()

	return m, m.form.Init()
}

func (m UnmatchedModel) updateMatch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = unmatchedStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.txs) {
			m.state = unmatchedStateBrowse
			return m, nil
		}

		return m, m.matchCmd(m.txs[idx].TransactionID, strings.TrimSpace(m.formInvoiceNumber))
	}

	return m, cmd
}

func (m *UnmatchedModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))

	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			FormatDate(tx.TransactionDate),
			FormatAmount(tx.Amount),
			tx.SenderName,
			tx.Purpose,
		})
	}

	m.table.SetRows(rows)
}

func (m UnmatchedModel) View() string {
	if m.state == unmatchedStateMatch && m.form != nil {
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("Unmatched transactions: %d\n\n", len(m.txs)))

	if m.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()) + "\n")
	}

	b.WriteString(m.table.View())

	if m.status != "" {
		b.WriteString("\n" + m.status)
	}

	b.WriteString("\n" + m.ShortHelp())

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

// Messages

type loadUnmatchedMsg struct {
	txs []*transaction.Transaction
	err error
}

type suggestionMsg struct {
	invoiceNumber string
}

type autoMatchDoneMsg struct {
	stats matching.Stats
	err   error
}

type matchDoneMsg struct {
	invoiceNumber string
	err           error
}

func (m UnmatchedModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.ListUnmatched(ctx)

		return loadUnmatchedMsg{txs: txs, err: err}
	}
}

// suggestCmd pre-fills the manual match form with the matcher's best
// candidate, if it has one.
func (m UnmatchedModel) suggestCmd(tx *transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		candidate, err := m.matchingService.FindMatchingInvoice(ctx, tx)
		if err != nil || candidate == nil {
			return suggestionMsg{}
		}

		return suggestionMsg{invoiceNumber: candidate.Invoice.InvoiceNumber}
	}
}

func (m UnmatchedModel) autoMatchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		stats, err := m.matchingService.AutoMatchAll(ctx, m.minConfidence)

		return autoMatchDoneMsg{stats: stats, err: err}
	}
}

func (m UnmatchedModel) matchCmd(transactionID, invoiceNumber string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := m.matchingService.ManualMatch(ctx, transactionID, invoiceNumber)
		if err != nil {
			switch {
			case errors.Is(err, invoice.ErrNotFound):
				err = fmt.Errorf("invoice %s not found", invoiceNumber)
			case errors.Is(err, matching.ErrInvoiceNotOpen):
				err = fmt.Errorf("invoice %s is no longer open", invoiceNumber)
			}
		}

		return matchDoneMsg{invoiceNumber: invoiceNumber, err: err}
	}
}
