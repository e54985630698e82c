package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates the run outcome for rendering.
type SummaryData struct {
	Total     int
	Completed int
	Finished  bool
	Cancelled bool
	Failed    bool
	Failure   string
	Elapsed   float64
	Alerts    []string
}

// Summary renders the closing lines of a watch screen.
type Summary struct {
	data SummaryData
}

// NewSummary creates a Summary for the given run outcome.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Nodes: %d/%d completed", s.data.Completed, s.data.Total))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case s.data.Failed:
		if s.data.Failure != "" {
			lines = append(lines, fmt.Sprintf("Pipeline failed: %s", s.data.Failure))
		} else {
			lines = append(lines, "Pipeline failed")
		}
	case s.data.Finished:
		lines = append(lines, fmt.Sprintf("Pipeline completed in %.2fs", s.data.Elapsed))
	}

	if len(s.data.Alerts) > 0 {
		lines = append(lines, "Device alerts:")
		for _, alert := range s.data.Alerts {
			lines = append(lines, fmt.Sprintf("  ! %s", alert))
		}
	}

	return strings.Join(lines, "\n")
}
