package engine

import (
	"sync"

	"github.com/rigflow/rigflow/internal/pipeline"
)

// inputPrefix marks frame buckets holding values injected into a composite
// subgraph before any of its nodes run.
const inputPrefix = "__input__"

func inputKey(nodeID string) string {
	return inputPrefix + nodeID
}

// frame is the value store of one pipeline scope. Node outputs land here
// keyed by node id. Stored maps are replaced wholesale, never mutated, so
// readers may hold references across level boundaries.
type frame struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newFrame() *frame {
	return &frame{data: make(map[string]map[string]any)}
}

func (f *frame) get(key string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outputs, ok := f.data[key]
	return outputs, ok
}

func (f *frame) set(key string, outputs map[string]any) {
	f.mu.Lock()
	f.data[key] = outputs
	f.mu.Unlock()
}

func (f *frame) setInput(nodeID, pin string, value any) {
	key := inputKey(nodeID)
	f.mu.Lock()
	bucket, ok := f.data[key]
	if !ok {
		bucket = make(map[string]any)
		f.data[key] = bucket
	}
	bucket[pin] = value
	f.mu.Unlock()
}

func (f *frame) snapshot() map[string]map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]any, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}

// scope binds a pipeline definition to the frame its nodes read and write.
// Composite nodes open a child scope with a fresh frame, so concurrent
// composites in one level never share subgraph state. expanding records the
// composite ids on the expansion path for cycle detection.
type scope struct {
	def       *pipeline.Pipeline
	frame     *frame
	expanding []string
}

func (s *scope) pipelineID() string {
	if s.def.PipelineID == "" {
		return "unknown"
	}
	return s.def.PipelineID
}

func (s *scope) pipelineName() string {
	if s.def.Name == "" {
		return "Unknown Pipeline"
	}
	return s.def.Name
}
