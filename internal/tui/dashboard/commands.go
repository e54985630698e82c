package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// loadPipelinesCmd reads the saved pipeline index off the UI goroutine.
func loadPipelinesCmd(lib Library) tea.Cmd {
	return func() tea.Msg {
		return PipelinesLoadedMsg{Pipelines: lib.List()}
	}
}

// runPipelineCmd loads a stored definition and executes it. Engine
// failures are carried inside the result, so the command only errors
// when the definition itself cannot be loaded.
func runPipelineCmd(ctx context.Context, lib Library, runner Runner, id string) tea.Cmd {
	return func() tea.Msg {
		def, err := lib.Get(id)
		if err != nil {
			return RunErrorMsg{PipelineID: id, Err: err}
		}

		result := runner.Execute(ctx, def)

		return RunFinishedMsg{
			PipelineID: id,
			Result:     result,
			FinishedAt: time.Now(),
		}
	}
}
