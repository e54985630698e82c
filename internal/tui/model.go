// Package tui renders a live pipeline run in the terminal. The model
// consumes the same telemetry the WebSocket stream carries, delivered as
// one message per bus event.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigflow/rigflow/internal/pipeline"
	"github.com/rigflow/rigflow/internal/tui/components"
)

// PipelineStartMsg announces the run and its scheduled node count.
type PipelineStartMsg struct {
	PipelineID string
	Name       string
	NodeCount  int
}

// NodeStartMsg marks a node, or one loop iteration, as executing.
type NodeStartMsg struct {
	NodeID          string
	Label           string
	NodeType        string
	Iteration       int
	TotalIterations int
}

// NodeDoneMsg reports a finished node and the wall time of its level.
type NodeDoneMsg struct {
	NodeID        string
	Label         string
	ExecutionTime float64
}

// PipelineDoneMsg reports a successful run.
type PipelineDoneMsg struct {
	ExecutionTime float64
	NodesExecuted int
}

// PipelineFailedMsg reports a failed run and the node that caused it, when
// the failure is attributable to one.
type PipelineFailedMsg struct {
	NodeID  string
	Message string
}

// DeviceAlertMsg surfaces a device error raised mid-run.
type DeviceAlertMsg struct {
	DeviceID string
	Message  string
}

// Model is the Bubbletea state for one watched pipeline run.
type Model struct {
	pipelineID string
	name       string
	nodes      map[string]components.NodeState
	order      []string
	alerts     []string
	total      int
	completed  int
	finished   bool
	cancelled  bool
	failed     bool
	failure    string
	elapsed    float64
}

// NewModel seeds the watch model from a pipeline definition. The node
// total is corrected by the start message once scheduling is known, since
// loop body members do not run on the level clock.
func NewModel(def *pipeline.Pipeline) Model {
	m := Model{
		nodes: make(map[string]components.NodeState),
		order: make([]string, 0),
	}
	if def != nil {
		m.pipelineID = def.PipelineID
		m.name = def.Name
		for i := range def.Nodes {
			m.ensureNode(def.Nodes[i].ID, def.Nodes[i].DisplayLabel())
		}
		m.total = len(m.order)
	}
	return m
}

// Init implements tea.Model. All input arrives as forwarded bus events.
func (m Model) Init() tea.Cmd { return nil }

// Finished reports whether the run reached a terminal state.
func (m Model) Finished() bool { return m.finished }

// Failed reports whether the run ended in an error.
func (m Model) Failed() bool { return m.failed }

// Cancelled reports whether the watcher was interrupted.
func (m Model) Cancelled() bool { return m.cancelled }

func (m *Model) ensureNode(id, label string) {
	if id == "" {
		return
	}
	if _, exists := m.nodes[id]; exists {
		return
	}
	if strings.TrimSpace(label) == "" {
		label = id
	}
	m.nodes[id] = components.NodeState{NodeID: id, Label: label, Status: components.StatusPending}
	m.order = append(m.order, id)
}
