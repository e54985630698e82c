package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigflow/rigflow/internal/tui/components"
)

// Update folds one message into the model. The run ends on a pipeline
// completion or error message, or when the user interrupts.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PipelineStartMsg:
		if msg.PipelineID != "" {
			m.pipelineID = msg.PipelineID
		}
		if msg.Name != "" {
			m.name = msg.Name
		}
		if msg.NodeCount > 0 {
			m.total = msg.NodeCount
		}
		return m, nil

	case NodeStartMsg:
		m.ensureNode(msg.NodeID, msg.Label)
		node := m.nodes[msg.NodeID]
		node.Status = components.StatusRunning
		if msg.Iteration > 0 {
			node.Iteration = msg.Iteration
			node.TotalIterations = msg.TotalIterations
		}
		m.nodes[msg.NodeID] = node
		return m, nil

	case NodeDoneMsg:
		m.ensureNode(msg.NodeID, msg.Label)
		node := m.nodes[msg.NodeID]
		settled := node.Status == components.StatusDone || node.Status == components.StatusFailed
		node.Status = components.StatusDone
		node.ExecutionTime = msg.ExecutionTime
		m.nodes[msg.NodeID] = node
		if !settled {
			m.completed++
		}
		return m, nil

	case PipelineDoneMsg:
		m.finished = true
		m.elapsed = msg.ExecutionTime
		if msg.NodesExecuted > 0 {
			m.completed = msg.NodesExecuted
			if m.total < m.completed {
				m.total = m.completed
			}
		}
		return m, tea.Quit

	case PipelineFailedMsg:
		m.finished = true
		m.failed = true
		m.failure = msg.Message
		if msg.NodeID != "" {
			m.ensureNode(msg.NodeID, "")
			node := m.nodes[msg.NodeID]
			node.Status = components.StatusFailed
			node.Message = msg.Message
			m.nodes[msg.NodeID] = node
		}
		return m, tea.Quit

	case DeviceAlertMsg:
		m.alerts = append(m.alerts, fmt.Sprintf("%s: %s", msg.DeviceID, msg.Message))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	}

	return m, nil
}
