package dashboard

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/pipeline"
	"github.com/rigflow/rigflow/internal/store"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type fakeLibrary struct {
	metas []store.PipelineMetadata
	defs  map[string]*pipeline.Pipeline
}

func (f *fakeLibrary) List() []store.PipelineMetadata {
	return f.metas
}

func (f *fakeLibrary) Get(id string) (*pipeline.Pipeline, error) {
	def, ok := f.defs[id]
	if !ok {
		return nil, rferrors.NewNotFoundError("pipeline", id)
	}
	return def, nil
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	result *engine.Result
}

func (f *fakeRunner) Execute(_ context.Context, def *pipeline.Pipeline) *engine.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, def.PipelineID)
	if f.result != nil {
		return f.result
	}
	return &engine.Result{
		Success:       true,
		NodesExecuted: len(def.Nodes),
		ExecutionTime: 0.5,
	}
}

func (f *fakeRunner) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func benchLibrary() *fakeLibrary {
	press := &pipeline.Pipeline{
		PipelineID: "press-cycle",
		Name:       "Press Cycle",
		Nodes: []pipeline.Node{
			{ID: "clamp", Type: pipeline.NodeFunction, PluginID: "mock_servo", FunctionID: "home"},
		},
	}

	return &fakeLibrary{
		metas: []store.PipelineMetadata{
			{ID: "press-cycle", Name: "Press Cycle"},
			{ID: "leak-test", Name: "Leak Test"},
			{ID: "calibration", Name: "Calibration"},
		},
		defs: map[string]*pipeline.Pipeline{"press-cycle": press},
	}
}

// loadedModel builds a model with the library index already applied.
func loadedModel(lib *fakeLibrary, runner *fakeRunner) Model {
	m := New(lib, runner)
	next, _ := m.Update(PipelinesLoadedMsg{Pipelines: lib.List()})
	return next.(Model)
}

func keyPress(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, key := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(key))
		m = next.(Model)
	}
	return m, cmd
}

func finishedRun(id string, success bool, nodes int, errMsg string) RunFinishedMsg {
	return RunFinishedMsg{
		PipelineID: id,
		Result: &engine.Result{
			Success:       success,
			NodesExecuted: nodes,
			ExecutionTime: 1.25,
			Error:         errMsg,
		},
		FinishedAt: time.Now(),
	}
}
