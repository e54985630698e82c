package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

func testPipeline(id, name string) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		PipelineID: id,
		Name:       name,
		Nodes: []pipeline.Node{
			{ID: "start", Type: pipeline.NodeFunction, PluginID: "logic", FunctionID: "print"},
		},
	}
}

func TestPipelineRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewPipelineStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	id, err := s.Save(testPipeline("line-a", "Line A"))
	require.NoError(t, err)
	require.Equal(t, "line-a", id)

	got, err := s.Get("line-a")
	require.NoError(t, err)
	require.Equal(t, "Line A", got.Name)
	require.Len(t, got.Nodes, 1)
	require.Equal(t, "start", got.Nodes[0].ID)
}

func TestPipelineSavePreservesCreatedAt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewPipelineStore(dir, logger.Nop())
	require.NoError(t, err)

	_, err = s.Save(testPipeline("line-a", "Line A"))
	require.NoError(t, err)

	first := s.List()[0]
	time.Sleep(5 * time.Millisecond)

	_, err = s.Save(testPipeline("line-a", "Line A v2"))
	require.NoError(t, err)

	second := s.List()[0]
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.NotEqual(t, first.UpdatedAt, second.UpdatedAt)
	require.Equal(t, "Line A v2", second.Name)
}

func TestPipelineListSortedAndDelete(t *testing.T) {
	t.Parallel()

	s, err := NewPipelineStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, err := s.Save(testPipeline(id, id))
		require.NoError(t, err)
	}

	list := s.List()
	require.Equal(t, []string{"alpha", "mid", "zeta"},
		[]string{list[0].ID, list[1].ID, list[2].ID})

	require.True(t, s.Delete("mid"))
	require.False(t, s.Delete("mid"))
	require.False(t, s.Exists("mid"))
	require.Len(t, s.List(), 2)

	_, err = s.Get("mid")
	var notFound *rferrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestPipelineIDSanitized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewPipelineStore(dir, logger.Nop())
	require.NoError(t, err)

	_, err = s.Save(testPipeline("../escape me", "Sneaky"))
	require.NoError(t, err)

	// The file lands inside the storage directory under the cleaned name.
	_, statErr := os.Stat(filepath.Join(dir, "escapeme.json"))
	require.NoError(t, statErr)

	got, err := s.Get("../escape me")
	require.NoError(t, err)
	require.Equal(t, "Sneaky", got.Name)
}

func TestPipelineUntitledDefault(t *testing.T) {
	t.Parallel()

	s, err := NewPipelineStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	_, err = s.Save(testPipeline("anon", ""))
	require.NoError(t, err)
	require.Equal(t, "Untitled Pipeline", s.List()[0].Name)
}

func testComposite(id string) *pipeline.Composite {
	return &pipeline.Composite{
		CompositeID: id,
		Name:        "Tare And Measure",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{
				{ID: "tare", Type: pipeline.NodeFunction, FunctionID: "tare"},
				{ID: "read", Type: pipeline.NodeFunction, FunctionID: "get_value"},
			},
			Edges: []pipeline.Edge{
				{ID: "e1", Source: "tare", SourceHandle: "complete", Target: "read", TargetHandle: "trigger"},
			},
		},
		Inputs: []pipeline.CompositeInput{
			{Name: "trigger", Type: "trigger", MapsTo: "tare.trigger"},
		},
		Outputs: []pipeline.CompositeOutput{
			{Name: "value", Type: "number", MapsFrom: "read.value"},
		},
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewCompositeStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	id, err := s.Save(testComposite("weigh_part"))
	require.NoError(t, err)
	require.Equal(t, "weigh_part", id)

	got, err := s.Get("weigh_part")
	require.NoError(t, err)
	require.Equal(t, "Tare And Measure", got.Name)
	require.Len(t, got.Subgraph.Nodes, 2)
	require.Equal(t, "tare.trigger", got.Inputs[0].MapsTo)

	// Defaults fill on save.
	require.Equal(t, "Composite", got.Category)
	require.Equal(t, "#9b59b6", got.Color)
	require.Equal(t, "1.0.0", got.Version)
	require.False(t, got.CreatedAt.IsZero())
}

func TestCompositeGeneratedID(t *testing.T) {
	t.Parallel()

	s, err := NewCompositeStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	c := testComposite("")
	id, err := s.Save(c)
	require.NoError(t, err)
	require.Regexp(t, `^composite_[0-9a-f]{8}$`, id)
	require.Equal(t, id, c.CompositeID)
}

func TestCompositeRejectsSelfReference(t *testing.T) {
	t.Parallel()

	s, err := NewCompositeStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	c := testComposite("loop_back")
	c.Subgraph.Nodes = append(c.Subgraph.Nodes, pipeline.Node{
		ID:          "inner",
		Type:        pipeline.NodeComposite,
		CompositeID: "loop_back",
	})

	_, err = s.Save(c)
	var circular *rferrors.CircularReferenceError
	require.ErrorAs(t, err, &circular)
	require.Equal(t, "loop_back", circular.CompositeID)
}

func TestCompositeRejectsBadPinMapping(t *testing.T) {
	t.Parallel()

	s, err := NewCompositeStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	c := testComposite("bad_pins")
	c.Inputs[0].MapsTo = "ghost.trigger"

	_, err = s.Save(c)
	var invalid *rferrors.ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestCompositeListAndCategory(t *testing.T) {
	t.Parallel()

	s, err := NewCompositeStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	a := testComposite("a_weigh")
	a.Category = "Measurement"
	_, err = s.Save(a)
	require.NoError(t, err)

	b := testComposite("b_move")
	_, err = s.Save(b)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, "a_weigh", list[0].ID)
	require.Equal(t, "Measurement", list[0].Category)
	require.Equal(t, 1, list[0].InputCount)

	inCategory, err := s.ListByCategory("Measurement")
	require.NoError(t, err)
	require.Len(t, inCategory, 1)
	require.Equal(t, "a_weigh", inCategory[0].CompositeID)

	require.True(t, s.Delete("a_weigh"))
	require.False(t, s.Exists("a_weigh"))
	require.Len(t, s.List(), 1)
}
