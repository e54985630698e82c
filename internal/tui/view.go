package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rigflow/rigflow/internal/tui/components"
)

// View renders the watch screen.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("Rigflow • %s", m.title())))

	sections = append(sections,
		sectionStyle.Render("Progress"),
		components.NewProgress(m.total).View(m.completed))

	entries := components.NewNodeList(m.order, m.nodes).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Nodes"), renderNodeEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Failed:    m.failed,
		Failure:   m.failure,
		Elapsed:   m.elapsed,
		Alerts:    m.alerts,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderNodeEntries(entries []components.NodeState) string {
	lines := make([]string, 0, len(entries))
	for _, node := range entries {
		line := fmt.Sprintf(" %s %s", StatusIcon(node.Status), node.Label)
		if node.Iteration > 0 {
			if node.TotalIterations > 0 {
				line = fmt.Sprintf("%s — iteration %d/%d", line, node.Iteration, node.TotalIterations)
			} else {
				line = fmt.Sprintf("%s — iteration %d", line, node.Iteration)
			}
		}
		if node.Status == components.StatusFailed && node.Message != "" {
			line = fmt.Sprintf("%s — %s", line, node.Message)
		}
		if node.Status == components.StatusDone && node.ExecutionTime > 0 {
			line = fmt.Sprintf("%s (%.2fs)", line, node.ExecutionTime)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if strings.TrimSpace(m.name) != "" {
		return m.name
	}
	if m.pipelineID != "" {
		return m.pipelineID
	}
	return "Pipeline"
}

// StatusIcon returns the glyph for a node status.
func StatusIcon(status string) string {
	switch status {
	case components.StatusDone:
		return successStyle.Render("✓")
	case components.StatusRunning:
		return runningStyle.Render("⏳")
	case components.StatusFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
