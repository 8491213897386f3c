package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/tenant"
)

type tenantsState int

const (
	tenantsStateBrowse tenantsState = iota
	tenantsStatePayment
	tenantsStateUtilities
	tenantsStateExtend
	tenantsStateHistory
)

type TenantsModel struct {
	CommonModel
	tenantService *tenant.Service
	ledgerService *ledger.Service

	state   tenantsState
	table   table.Model
	tenants []*tenant.Tenant
	form    *huh.Form
	history HistoryModel

	statusFilterIdx int

	filter  tenant.ListFilter
	loading bool
	err     error
	status  string

	// Form bindings
	formAmount      string
	formWater       string
	formElectricity string
	formGarbage     string
	formSecurity    string
	formMonths      string
}

func NewTenantsModel(tenantSvc *tenant.Service, ledgerSvc *ledger.Service) TenantsModel {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Unit", Width: 8},
		{Title: "Phone", Width: 14},
		{Title: "Rent", Width: 12},
		{Title: "Balance", Width: 12},
		{Title: "Payment", Width: 10},
		{Title: "Month", Width: 9},
		{Title: "Lease End", Width: 12},
		{Title: "Status", Width: 9},
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

	return TenantsModel{
		tenantService: tenantSvc,
		ledgerService: ledgerSvc,
		table:         t,
		filter:        tenant.ListFilter{},
	}
}

func (m TenantsModel) Title() string { return "Tenants" }
func (m TenantsModel) ShortHelp() string {
	switch m.state {
	case tenantsStateBrowse:
		return "Esc: back | Enter: ledger | p: payment | u: utilities | l: extend lease | s: status filter | r: refresh"
	case tenantsStateHistory:
		return m.history.ShortHelp()
	default:
		return "Navigate form | Esc: cancel"
	}
}

func (m TenantsModel) Init() tea.Cmd {
	return m.loadTenantsCmd()
}

func (m TenantsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTenantsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tenants = msg.tenants
		m.err = nil
		m.refreshTable()
		return m, nil

	case tenantActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.status
		}
		m.state = tenantsStateBrowse
		m.form = nil
		m.table.Focus()
		return m, m.loadTenantsCmd()

	case closeHistoryMsg:
		m.state = tenantsStateBrowse
		m.table.Focus()
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
	}

	switch m.state {
	case tenantsStateBrowse:
		return m.updateBrowse(msg)
	case tenantsStateHistory:
		var newModel tea.Model
		var cmd tea.Cmd
		newModel, cmd = m.history.Update(msg)
		m.history = newModel.(HistoryModel)
		return m, cmd
	default:
		return m.updateForm(msg)
	}
}

func (m TenantsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTenantsCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % 4
			m.applyFilter()
			return m, m.loadTenantsCmd()
		case "enter":
			if t := m.selected(); t != nil {
				m.history = NewHistoryModel(m.ledgerService, t)
				m.state = tenantsStateHistory
				m.table.Blur()
				return m, m.history.Init()
			}
		case "p":
			return m.enterPaymentMode()
		case "u":
			return m.enterUtilitiesMode()
		case "l":
			return m.enterExtendMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m TenantsModel) selected() *tenant.Tenant {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.tenants) {
		return nil
	}
	return m.tenants[idx]
}

func (m TenantsModel) enterPaymentMode() (tea.Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}

	m.formAmount = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title(fmt.Sprintf("Payment from %s (KES)", t.Name)).
				Placeholder("12000").
				Value(&m.formAmount).
				Validate(validateAmount),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = tenantsStatePayment
	m.table.Blur()
	return m, m.form.Init()
}

func (m TenantsModel) enterUtilitiesMode() (tea.Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}

	m.formWater, m.formElectricity, m.formGarbage, m.formSecurity = "", "", "", ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("water").
				Title("Water (blank = unchanged)").
				Value(&m.formWater).
				Validate(validateOptionalCharge),
			huh.NewInput().
				Key("electricity").
				Title("Electricity").
				Value(&m.formElectricity).
				Validate(validateOptionalCharge),
			huh.NewInput().
				Key("garbage").
				Title("Garbage").
				Value(&m.formGarbage).
				Validate(validateOptionalCharge),
			huh.NewInput().
				Key("security").
				Title("Security").
				Value(&m.formSecurity).
				Validate(validateOptionalCharge),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = tenantsStateUtilities
	m.table.Blur()
	return m, m.form.Init()
}

func (m TenantsModel) enterExtendMode() (tea.Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}

	m.formMonths = "12"
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("months").
				Title(fmt.Sprintf("Extend lease for %s by (months)", t.Name)).
				Value(&m.formMonths).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 || n > 60 {
						return fmt.Errorf("enter a whole number of months between 1 and 60")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = tenantsStateExtend
	m.table.Blur()
	return m, m.form.Init()
}

func (m TenantsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = tenantsStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	switch m.state {
	case tenantsStatePayment:
		return m, m.applyPaymentCmd()
	case tenantsStateUtilities:
		return m, m.updateUtilitiesCmd()
	case tenantsStateExtend:
		return m, m.extendLeaseCmd()
	}

	return m, nil
}

func (m TenantsModel) View() string {
	if m.state == tenantsStateHistory {
		return m.history.View()
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading tenants...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabels := []string{"All", "Active", "Pending", "Expired"}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(statusLabels[m.statusFilterIdx]))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.form != nil && m.state != tenantsStateBrowse {
		titles := map[tenantsState]string{
			tenantsStatePayment:   "Record Payment",
			tenantsStateUtilities: "Update Utilities",
			tenantsStateExtend:    "Extend Lease",
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("%s\n\n%s", titles[m.state], m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *TenantsModel) applyFilter() {
	switch m.statusFilterIdx {
	case 1:
		m.filter.Status = new(tenant.StatusActive)
	case 2:
		m.filter.Status = new(tenant.StatusPending)
	case 3:
		m.filter.Status = new(tenant.StatusExpired)
	default:
		m.filter.Status = nil
	}
}

func (m *TenantsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.tenants))
	for _, t := range m.tenants {
		currentMonth := ""
		if t.CurrentMonth != nil {
			currentMonth = t.CurrentMonth.String()
		}
		rows = append(rows, table.Row{
			t.Name,
			t.Unit,
			t.Phone,
			FormatMoney(t.MonthlyRent),
			FormatMoney(t.Balance),
			string(t.PaymentStatus),
			currentMonth,
			FormatDate(t.LeaseEnd),
			string(t.Status),
		})
	}
	m.table.SetRows(rows)
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return fmt.Errorf("enter a positive amount")
	}
	return nil
}

func validateOptionalCharge(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return fmt.Errorf("enter a non-negative amount or leave blank")
	}
	return nil
}

func optionalCharge(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// Messages

type loadTenantsMsg struct {
	tenants []*tenant.Tenant
	err     error
}

func (m TenantsModel) loadTenantsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tenants, err := m.tenantService.List(ctx, m.filter)
		return loadTenantsMsg{tenants: tenants, err: err}
	}
}

type tenantActionMsg struct {
	status string
	err    error
}

func (m TenantsModel) applyPaymentCmd() tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(m.formAmount))
	if err != nil {
		return func() tea.Msg { return tenantActionMsg{err: err} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rec, err := m.ledgerService.ApplyPayment(ctx, ledger.PaymentParams{
			TenantID: t.ID,
			Amount:   amount,
			Date:     time.Now(),
		})
		if err != nil {
			return tenantActionMsg{err: err}
		}

		return tenantActionMsg{status: fmt.Sprintf(
			"Applied %s to %s for %s (now %s)",
			FormatMoney(amount), t.Name, rec.Month, rec.Status,
		)}
	}
}

func (m TenantsModel) updateUtilitiesCmd() tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}

	params := ledger.UtilityParams{
		Water:       optionalCharge(m.formWater),
		Electricity: optionalCharge(m.formElectricity),
		Garbage:     optionalCharge(m.formGarbage),
		Security:    optionalCharge(m.formSecurity),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rec, err := m.ledgerService.UpdateUtilities(ctx, t.ID, params)
		if err != nil {
			return tenantActionMsg{err: err}
		}

		return tenantActionMsg{status: fmt.Sprintf(
			"Utilities updated for %s; %s now totals %s",
			t.Name, rec.Month, FormatMoney(rec.Amount),
		)}
	}
}

func (m TenantsModel) extendLeaseCmd() tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}

	months, err := strconv.Atoi(strings.TrimSpace(m.formMonths))
	if err != nil {
		return func() tea.Msg { return tenantActionMsg{err: err} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.tenantService.ExtendLease(ctx, t.ID, months)
		if err != nil {
			return tenantActionMsg{err: err}
		}

		return tenantActionMsg{status: fmt.Sprintf(
			"Lease for %s extended to %s",
			updated.Name, FormatDate(updated.LeaseEnd),
		)}
	}
}
