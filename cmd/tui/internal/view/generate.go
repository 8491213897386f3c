package view

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/otienodev/kodi/internal/ledger"
)

type generateState int

const (
	generateStateIdle generateState = iota
	generateStateRunning
	generateStateDone
)

// GenerateModel runs the monthly record generation on demand. The run is
// idempotent, so triggering it again only fills in what is missing.
type GenerateModel struct {
	CommonModel
	ledgerService *ledger.Service

	state  generateState
	result ledger.GenerationResult
	err    error
}

func NewGenerateModel(ledgerSvc *ledger.Service) GenerateModel {
	return GenerateModel{ledgerService: ledgerSvc}
}

func (m GenerateModel) Title() string { return "Monthly Billing" }
func (m GenerateModel) ShortHelp() string {
	if m.state == generateStateRunning {
		return "Running..."
	}
	return "Enter: run generation | Esc: back"
}

func (m GenerateModel) Init() tea.Cmd {
	return nil
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case generateDoneMsg:
		m.state = generateStateDone
		m.result = msg.result
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.state == generateStateRunning {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "enter":
			m.state = generateStateRunning
			m.err = nil
			return m, m.generateCmd()
		}
	}

	return m, nil
}

func (m GenerateModel) View() string {
	var body string

	switch m.state {
	case generateStateIdle:
		body = "Generate this month's rent records for all active tenants.\n\n" +
			"Tenants that already have a record for the month are skipped.\n\n" +
			"Press Enter to run."
	case generateStateRunning:
		body = "Generating rent records..."
	case generateStateDone:
		if m.err != nil {
			body = fmt.Sprintf("Generation failed: %v", m.err)
			break
		}

		body = fmt.Sprintf(
			"Generation complete for %s\n\n"+
				"  Generated: %d\n"+
				"  Skipped:   %d\n"+
				"  Failed:    %d\n"+
				"  Overdue:   %d\n\n"+
				"Press Enter to run again.",
			m.result.Month, m.result.Generated, m.result.Skipped,
			m.result.Failed, m.result.Overdue,
		)

		if m.result.Failed > 0 {
			body += "\n\nSome tenants failed; check the server logs and rerun."
		}
	}

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(60).
		Render("Monthly Billing\n\n" + body)

	return lipgloss.NewStyle().Padding(1).Render(panel)
}

// Messages

type generateDoneMsg struct {
	result ledger.GenerationResult
	err    error
}

// generateTimeout is deliberately longer than dbTimeout: a run touches every
// active tenant.
const generateTimeout = 2 * time.Minute

func (m GenerateModel) generateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()

		result, err := m.ledgerService.GenerateMonthly(ctx)
		return generateDoneMsg{result: result, err: err}
	}
}
