package main

import (
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/otienodev/kodi/cmd/tui/internal/view"
	"github.com/otienodev/kodi/internal/config"
	"github.com/otienodev/kodi/internal/database"
	"github.com/otienodev/kodi/internal/ledger"
	ledgerStore "github.com/otienodev/kodi/internal/ledger/store"
	"github.com/otienodev/kodi/internal/tenant"
	tenantStore "github.com/otienodev/kodi/internal/tenant/store"
)

type model struct {
	tenantService *tenant.Service
	ledgerService *ledger.Service

	currentView View

	tenantsView  view.TenantsModel
	generateView view.GenerateModel
}

type View int

const (
	ViewMenu     View = 0
	ViewTenants  View = 1
	ViewGenerate View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		slog.Error("failed to load billing timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	tenants := tenantStore.New(db)
	tenantSvc := tenant.NewService(tenants)
	ledgerSvc := ledger.NewService(ledgerStore.New(db), tenants, ledger.Config{
		Timezone: loc,
		DueDay:   cfg.Billing.DueDay,
	}, nil)

	return model{
		tenantService: tenantSvc,
		ledgerService: ledgerSvc,
		currentView:   ViewMenu,
		tenantsView:   view.NewTenantsModel(tenantSvc, ledgerSvc),
		generateView:  view.NewGenerateModel(ledgerSvc),
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
				m.currentView = ViewTenants
				m.tenantsView = view.NewTenantsModel(m.tenantService, m.ledgerService)

				return m, m.tenantsView.Init()
			case "2":
				m.currentView = ViewGenerate
				m.generateView = view.NewGenerateModel(m.ledgerService)

				return m, m.generateView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewTenants:
		var newModel tea.Model
		newModel, cmd = m.tenantsView.Update(msg)
		m.tenantsView = newModel.(view.TenantsModel)
	case ViewGenerate:
		var newModel tea.Model
		newModel, cmd = m.generateView.Update(msg)
		m.generateView = newModel.(view.GenerateModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Kodi TUI\n\n" +
				"1. Tenants\n" +
				"2. Run Monthly Billing\n\n" +
				"q. Quit",
		)
	case ViewTenants:
		return m.tenantsView.View()
	case ViewGenerate:
		return m.generateView.View()
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
