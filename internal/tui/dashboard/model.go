// Package dashboard implements the interactive pipeline board. It
// lists saved pipelines, launches runs against the execution engine,
// and keeps the outcome of the last run per pipeline on screen.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/store"
)

// RunOutcome is the remembered result of the most recent run of a
// pipeline.
type RunOutcome struct {
	Success       bool
	NodesExecuted int
	ExecutionTime float64
	Error         string
	FinishedAt    time.Time
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	library Library
	runner  Runner

	pipelines []store.PipelineMetadata
	outcomes  map[string]RunOutcome
	running   map[string]bool

	viewMode  ViewMode
	cursor    int
	confirmID string

	errorMsg  string
	showError bool

	spinner spinner.Model
	width   int
	height  int
}

// New builds a dashboard over the given pipeline library and runner.
func New(lib Library, runner Runner) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		library:  lib,
		runner:   runner,
		outcomes: make(map[string]RunOutcome),
		running:  make(map[string]bool),
		spinner:  sp,
	}
}

// Init loads the pipeline index and starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadPipelinesCmd(m.library))
}

// Selected returns the pipeline under the cursor.
func (m Model) Selected() (store.PipelineMetadata, bool) {
	if m.cursor < 0 || m.cursor >= len(m.pipelines) {
		return store.PipelineMetadata{}, false
	}
	return m.pipelines[m.cursor], true
}

// IsRunning reports whether a run is in flight for the pipeline.
func (m Model) IsRunning(id string) bool {
	return m.running[id]
}

// Outcome returns the last recorded run outcome for the pipeline.
func (m Model) Outcome(id string) (RunOutcome, bool) {
	out, ok := m.outcomes[id]
	return out, ok
}

// runningCount reports how many runs are currently in flight.
func (m Model) runningCount() int {
	return len(m.running)
}

// outcomeCounts tallies finished runs into passed and failed.
func (m Model) outcomeCounts() (passed, failed int) {
	for _, out := range m.outcomes {
		if out.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// outcomeOf converts an engine result into a stored outcome.
func outcomeOf(result *engine.Result, finishedAt time.Time) RunOutcome {
	out := RunOutcome{FinishedAt: finishedAt}
	if result == nil {
		out.Error = "no result"
		return out
	}

	out.Success = result.Success
	out.NodesExecuted = result.NodesExecuted
	out.ExecutionTime = result.ExecutionTime
	out.Error = result.Error
	return out
}
