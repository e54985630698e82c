package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// View renders the active screen.
func (m Model) View() string {
	switch m.viewMode {
	case ViewHelp:
		return m.renderHelpView()
	case ViewConfirm:
		return m.renderConfirmView()
	default:
		return m.renderListView()
	}
}

func (m Model) renderListView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⚙ Rigflow Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n\n")

	if len(m.pipelines) == 0 {
		b.WriteString(m.renderEmptyState())
	} else {
		start, end := m.visibleWindow()
		for i := start; i < end; i++ {
			b.WriteString(m.renderPipelineRow(i))
		}
		if end < len(m.pipelines) {
			b.WriteString(detailStyle.Render(fmt.Sprintf("  … %d more", len(m.pipelines)-end)))
			b.WriteString("\n")
		}
	}

	if m.showError {
		b.WriteString(errorBannerStyle.Render("Error: " + m.errorMsg))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render("↑/↓ navigate  •  enter run  •  r reload  •  ? help  •  q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderStats() string {
	passed, failed := m.outcomeCounts()

	parts := []string{fmt.Sprintf("%d pipelines", len(m.pipelines))}
	if passed > 0 {
		parts = append(parts, successStyle.Render(fmt.Sprintf("✓ %d passed", passed)))
	}
	if failed > 0 {
		parts = append(parts, failureStyle.Render(fmt.Sprintf("✗ %d failed", failed)))
	}
	if n := m.runningCount(); n > 0 {
		parts = append(parts, runningStyle.Render(fmt.Sprintf("%d running", n)))
	}

	return statsStyle.Render(strings.Join(parts, "  •  "))
}

func (m Model) renderPipelineRow(i int) string {
	p := m.pipelines[i]

	cursor := "  "
	if i == m.cursor {
		cursor = "▸ "
	}

	name := p.Name
	if name == "" {
		name = p.ID
	}
	label := fmt.Sprintf("%d. %s", i+1, name)
	if i == m.cursor {
		label = selectedStyle.Render(label)
	}

	var glyph, detail string
	switch {
	case m.running[p.ID]:
		glyph = m.spinner.View()
		detail = runningStyle.Render("running")
	default:
		if out, ok := m.outcomes[p.ID]; ok {
			if out.Success {
				glyph = successStyle.Render("✓")
				detail = fmt.Sprintf("%d nodes in %.2fs, %s", out.NodesExecuted, out.ExecutionTime, FormatLastRun(out.FinishedAt))
			} else {
				glyph = failureStyle.Render("✗")
				detail = fmt.Sprintf("failed: %s, %s", truncate(out.Error, 60), FormatLastRun(out.FinishedAt))
			}
		} else {
			glyph = pendingStyle.Render("○")
			detail = "not run yet"
		}
	}

	line1 := fmt.Sprintf("%s%s %s\n", cursor, glyph, label)
	line2 := "     " + detailStyle.Render(p.ID+" — "+detail) + "\n"

	return line1 + line2
}

func (m Model) renderEmptyState() string {
	return detailStyle.Render("No pipelines saved yet.") + "\n\n" +
		detailStyle.Render("Pipelines saved through the API show up here.") + "\n" +
		detailStyle.Render("Run a definition directly with: rigflow run <file>") + "\n"
}

func (m Model) renderHelpView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⚙ Rigflow Dashboard — Help"))
	b.WriteString("\n\n")

	keys := []struct{ key, desc string }{
		{"↑/k", "move up"},
		{"↓/j", "move down"},
		{"1-9", "jump to row"},
		{"enter", "run selected pipeline"},
		{"r", "reload pipeline list"},
		{"x", "dismiss error"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %-8s %s\n", k.key, k.desc))
	}

	b.WriteString("\n")
	b.WriteString("Status glyphs:\n")
	b.WriteString("  " + successStyle.Render("✓") + "  last run passed\n")
	b.WriteString("  " + failureStyle.Render("✗") + "  last run failed\n")
	b.WriteString("  " + pendingStyle.Render("○") + "  not run yet\n")

	b.WriteString(footerStyle.Render("esc to go back"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderConfirmView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⚙ Rigflow Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Run pipeline '%s'?\n\n", m.pipelineName(m.confirmID)))
	b.WriteString(detailStyle.Render("Connected devices will actuate.") + "\n")
	b.WriteString(footerStyle.Render("y run  •  n cancel"))
	b.WriteString("\n")

	return b.String()
}

// visibleWindow returns the slice of rows to draw, keeping the cursor
// near the middle once the list outgrows the terminal.
func (m Model) visibleWindow() (start, end int) {
	max := m.maxVisibleRows()
	if len(m.pipelines) <= max {
		return 0, len(m.pipelines)
	}

	start = m.cursor - max/2
	if start < 0 {
		start = 0
	}
	end = start + max
	if end > len(m.pipelines) {
		end = len(m.pipelines)
		start = end - max
	}
	return start, end
}

func (m Model) maxVisibleRows() int {
	if m.height <= 0 {
		return 10
	}
	rows := (m.height - 8) / 2
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m Model) pipelineName(id string) string {
	for _, p := range m.pipelines {
		if p.ID == id {
			if p.Name != "" {
				return p.Name
			}
			return p.ID
		}
	}
	return id
}

// FormatLastRun renders a finish time relative to now.
func FormatLastRun(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
