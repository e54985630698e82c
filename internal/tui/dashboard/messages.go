package dashboard

import (
	"time"

	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/store"
)

// ViewMode identifies which screen the dashboard is showing.
type ViewMode int

const (
	// ViewList shows the saved pipeline board.
	ViewList ViewMode = iota
	// ViewHelp shows the key binding reference.
	ViewHelp
	// ViewConfirm asks before starting a run.
	ViewConfirm
)

// PipelinesLoadedMsg delivers the saved pipeline index.
type PipelinesLoadedMsg struct {
	Pipelines []store.PipelineMetadata
}

// RunFinishedMsg delivers the outcome of a pipeline run.
type RunFinishedMsg struct {
	PipelineID string
	Result     *engine.Result
	FinishedAt time.Time
}

// RunErrorMsg reports a run that could not start, for example when the
// stored definition fails to load.
type RunErrorMsg struct {
	PipelineID string
	Err        error
}
