package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgerdes/paymatch/internal/transaction"
)

// StatisticsModel shows the matching progress over the whole book.
type StatisticsModel struct {
	CommonModel
	txService *transaction.Service

	spinner spinner.Model
	loading bool
	stats   transaction.Statistics
	err     error
}

func NewStatisticsModel(txSvc *transaction.Service) StatisticsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatisticsModel{
		txService: txSvc,
		spinner:   sp,
		loading:   true,
	}
}

func (m StatisticsModel) Title() string { return "Statistics" }

func (m StatisticsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m StatisticsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m StatisticsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		}

	case statisticsMsg:
		m.loading = false
		m.stats = msg.stats
		m.err = msg.err

		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m StatisticsModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	if m.loading {
		return style.Render(fmt.Sprintf("%s Loading statistics...", m.spinner.View()))
	}

	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(
				fmt.Sprintf("Error: %v", m.err),
			) + "\n\n(Esc to go back)",
		)
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(22).Render

	body := fmt.Sprintf("%s%d\n%s%d\n%s%d\n%s%.1f%%\n%s%s EUR\n",
		label("Total transactions"), m.stats.TotalTransactions,
		label("Matched"), m.stats.MatchedCount,
		label("Unmatched"), m.stats.UnmatchedCount,
		label("Match rate"), m.stats.MatchRate,
		label("Matched amount"), FormatAmount(m.stats.MatchedAmount),
	)

	return style.Render("Payment Matching\n\n" + body + "\n" + m.ShortHelp())
}

type statisticsMsg struct {
	stats transaction.Statistics
	err   error
}

func (m StatisticsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		stats, err := m.txService.Statistics(ctx)

		return statisticsMsg{stats: stats, err: err}
	}
}
