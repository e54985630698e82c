package dashboard

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PipelinesLoadedMsg:
		m.pipelines = msg.Pipelines
		if m.cursor >= len(m.pipelines) {
			m.cursor = len(m.pipelines) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case RunFinishedMsg:
		delete(m.running, msg.PipelineID)
		m.outcomes[msg.PipelineID] = outcomeOf(msg.Result, msg.FinishedAt)
		return m, nil

	case RunErrorMsg:
		delete(m.running, msg.PipelineID)
		m.errorMsg = msg.Err.Error()
		m.showError = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewHelp:
		return m.handleHelpKey(msg)
	case ViewConfirm:
		return m.handleConfirmKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.pipelines)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		selected, ok := m.Selected()
		if !ok || m.running[selected.ID] {
			return m, nil
		}
		m.confirmID = selected.ID
		m.viewMode = ViewConfirm
		return m, nil

	case "r":
		return m, loadPipelinesCmd(m.library)

	case "?":
		m.viewMode = ViewHelp
		return m, nil

	case "x":
		m.showError = false
		m.errorMsg = ""
		return m, nil
	}

	// Digits jump straight to a row.
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.pipelines) {
		m.cursor = n - 1
	}

	return m, nil
}

func (m Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "?":
		m.viewMode = ViewList
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := m.confirmID
		m.confirmID = ""
		m.viewMode = ViewList
		if id == "" || m.running[id] {
			return m, nil
		}
		m.running[id] = true
		return m, tea.Batch(m.spinner.Tick, runPipelineCmd(context.Background(), m.library, m.runner, id))

	case "n", "N", "esc", "q":
		m.confirmID = ""
		m.viewMode = ViewList
	}
	return m, nil
}
