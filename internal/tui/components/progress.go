package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var countStyle = lipgloss.NewStyle().Bold(true)

// Progress renders run completion as a gradient bar with a node count.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a completion bar for the given node total.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar for the given completion count.
func (p Progress) View(completed int) string {
	count := countStyle.Render(fmt.Sprintf("%d/%d", completed, p.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, p.bar.ViewAs(p.ratio(completed)), " ", count)
}

func (p Progress) ratio(completed int) float64 {
	if p.total <= 0 {
		return 0
	}
	return math.Min(1, float64(completed)/float64(p.total))
}
