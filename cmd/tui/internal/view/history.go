package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/tenant"
)

// HistoryModel shows one tenant's rent ledger, newest month first.
type HistoryModel struct {
	CommonModel
	ledgerService *ledger.Service
	tenant        *tenant.Tenant

	table   table.Model
	records []*ledger.RentRecord
	loading bool
	err     error
}

func NewHistoryModel(ledgerSvc *ledger.Service, t *tenant.Tenant) HistoryModel {
	columns := []table.Column{
		{Title: "Month", Width: 9},
		{Title: "Charged", Width: 12},
		{Title: "Prev Bal", Width: 12},
		{Title: "Credit", Width: 10},
		{Title: "Due", Width: 12},
		{Title: "Paid", Width: 12},
		{Title: "Status", Width: 9},
		{Title: "Due Date", Width: 12},
	}

	tbl := table.New(
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
	tbl.SetStyles(s)

	return HistoryModel{
		ledgerService: ledgerSvc,
		tenant:        t,
		table:         tbl,
		loading:       true,
	}
}

func (m HistoryModel) Title() string     { return "Rent Ledger" }
func (m HistoryModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m HistoryModel) Init() tea.Cmd {
	return m.loadRecordsCmd()
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadHistoryMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.records = msg.records
		m.refreshTable()
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, closeHistory
		case "r":
			m.loading = true
			return m, m.loadRecordsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m HistoryModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading rent records...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Rent ledger: %s (unit %s)", m.tenant.Name, m.tenant.Unit)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *HistoryModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, table.Row{
			rec.Month.String(),
			FormatMoney(rec.Amount),
			FormatMoney(rec.PreviousBalance),
			FormatMoney(rec.CreditBalance),
			FormatMoney(rec.CarriedForward),
			FormatMoney(rec.AmountPaid),
			string(rec.Status),
			FormatDate(rec.DueDate),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type closeHistoryMsg struct{}

func closeHistory() tea.Msg {
	return closeHistoryMsg{}
}

type loadHistoryMsg struct {
	records []*ledger.RentRecord
	err     error
}

func (m HistoryModel) loadRecordsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		records, err := m.ledgerService.History(ctx, m.tenant.ID)
		return loadHistoryMsg{records: records, err: err}
	}
}
