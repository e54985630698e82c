package dashboard

import (
	"context"

	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/pipeline"
	"github.com/rigflow/rigflow/internal/store"
)

// Library provides access to the saved pipeline index. The pipeline
// store satisfies it; tests substitute fakes.
type Library interface {
	List() []store.PipelineMetadata
	Get(id string) (*pipeline.Pipeline, error)
}

// Runner executes a pipeline definition and reports the outcome. The
// execution engine satisfies it.
type Runner interface {
	Execute(ctx context.Context, def *pipeline.Pipeline) *engine.Result
}
