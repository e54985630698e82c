package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/pipeline"
)

func compositeNode(id, compositeID string) pipeline.Node {
	return pipeline.Node{ID: id, Type: pipeline.NodeComposite, CompositeID: compositeID}
}

// scaleComposite doubles its "raw" input through a single inner node.
func scaleComposite(id string) *pipeline.Composite {
	return &pipeline.Composite{
		CompositeID: id,
		Name:        "Scale",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{functionNode("inner", "math_kit", "double")},
		},
		Inputs:  []pipeline.CompositeInput{{Name: "raw", MapsTo: "inner.value"}},
		Outputs: []pipeline.CompositeOutput{{Name: "scaled", MapsFrom: "inner.result"}},
	}
}

func TestCompositeMapsInputsAndOutputs(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_scale"] = scaleComposite("comp_scale")
	h.direct.handler = func(call directCall) map[string]any {
		if call.functionID == "double" {
			value, _ := call.inputs["value"].(float64)
			return map[string]any{"result": value * 2}
		}
		return map[string]any{"value": 21.0}
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "scaling",
		Nodes: []pipeline.Node{
			functionNode("measure", "loadcell", "get_value"),
			compositeNode("scale", "comp_scale"),
		},
		Edges: []pipeline.Edge{flow("measure", "value", "scale", "raw")},
	})

	require.True(t, result.Success)
	require.Equal(t, 42.0, result.Results["scale"]["scaled"])

	// The inner node received the injected value and its outputs stayed
	// inside the subgraph frame.
	inputs := h.direct.callInputs("double")
	require.Len(t, inputs, 1)
	require.Equal(t, 21.0, inputs[0]["value"])
	require.NotContains(t, result.Results, "inner")
}

func TestCompositeEmbeddedSubgraph(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.direct.handler = func(call directCall) map[string]any {
		value, _ := call.inputs["value"].(float64)
		return map[string]any{"result": value + 1}
	}

	inline := pipeline.Node{
		ID:   "bump",
		Type: pipeline.NodeComposite,
		Subgraph: &pipeline.Subgraph{
			Nodes: []pipeline.Node{functionNode("inner", "math_kit", "inc")},
		},
		Inputs:  []pipeline.CompositeInput{{Name: "n", MapsTo: "inner.value"}},
		Outputs: []pipeline.CompositeOutput{{Name: "bumped", MapsFrom: "inner.result"}},
		Config:  map[string]any{"n": 5.0},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "inline",
		Nodes:      []pipeline.Node{inline},
	})

	require.True(t, result.Success)
	require.Equal(t, 6.0, result.Results["bump"]["bumped"])
}

func TestCompositeNotFound(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "missing",
		Nodes:      []pipeline.Node{compositeNode("ghostly", "ghost")},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "composite definition not found for 'ghost'")
}

func TestCompositeEmptySubgraph(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	empty := pipeline.Node{ID: "hollow", Type: pipeline.NodeComposite, Subgraph: &pipeline.Subgraph{}}
	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "empty",
		Nodes:      []pipeline.Node{empty},
	})

	require.True(t, result.Success)
	require.Empty(t, result.Results["hollow"])
}

func TestCompositeSubgraphRunsSequentially(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_seq"] = &pipeline.Composite{
		CompositeID: "comp_seq",
		Name:        "Sequence",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{
				functionNode("a", "press_kit", "prep"),
				functionNode("b", "press_kit", "stamp"),
				functionNode("c", "press_kit", "cure"),
			},
			Edges: []pipeline.Edge{
				flow("a", "complete", "b", "trigger"),
				flow("b", "complete", "c", "trigger"),
			},
		},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "ordered",
		Nodes:      []pipeline.Node{compositeNode("steps", "comp_seq")},
	})

	require.True(t, result.Success)
	require.Equal(t, []string{"prep", "stamp", "cure"}, h.direct.functionIDs())
}

func TestCompositeDepthLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	// comp_0 contains comp_1 contains comp_2 and so on; the chain is
	// longer than the nesting allowance.
	for i := 0; i < 7; i++ {
		h.composites.defs[fmt.Sprintf("comp_%d", i)] = &pipeline.Composite{
			CompositeID: fmt.Sprintf("comp_%d", i),
			Name:        "Nested",
			Subgraph: pipeline.Subgraph{
				Nodes: []pipeline.Node{compositeNode("deeper", fmt.Sprintf("comp_%d", i+1))},
			},
		}
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "deep",
		Nodes:      []pipeline.Node{compositeNode("top", "comp_0")},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "maximum composite nesting depth (5) exceeded")
}

func TestCompositeSelfReference(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_self"] = &pipeline.Composite{
		CompositeID: "comp_self",
		Name:        "Ouroboros",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{compositeNode("again", "comp_self")},
		},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "self",
		Nodes:      []pipeline.Node{compositeNode("top", "comp_self")},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "expands itself")
}

func TestCompositeMutualReference(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_ping"] = &pipeline.Composite{
		CompositeID: "comp_ping",
		Name:        "Ping",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{compositeNode("to_pong", "comp_pong")},
		},
	}
	h.composites.defs["comp_pong"] = &pipeline.Composite{
		CompositeID: "comp_pong",
		Name:        "Pong",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{compositeNode("to_ping", "comp_ping")},
		},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "mutual",
		Nodes:      []pipeline.Node{compositeNode("top", "comp_ping")},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "expands itself")
}

func TestCompositeRejectsCyclicSubgraph(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_cycle"] = &pipeline.Composite{
		CompositeID: "comp_cycle",
		Name:        "Tangle",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{
				functionNode("a", "press_kit", "prep"),
				functionNode("b", "press_kit", "stamp"),
			},
			Edges: []pipeline.Edge{
				flow("a", "complete", "b", "trigger"),
				flow("b", "complete", "a", "trigger"),
			},
		},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "tangled",
		Nodes:      []pipeline.Node{compositeNode("knot", "comp_cycle")},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "circular dependency")
}

func TestCompositeContainingLoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_loop"] = &pipeline.Composite{
		CompositeID: "comp_loop",
		Name:        "Batcher",
		Subgraph: pipeline.Subgraph{
			Nodes: []pipeline.Node{
				forLoopNode("repeat", map[string]any{"count": 3}),
				functionNode("press", "press_kit", "stamp"),
			},
			Edges: []pipeline.Edge{loopBody("repeat", "press")},
		},
		Outputs: []pipeline.CompositeOutput{{Name: "done", MapsFrom: "repeat.iterations_completed"}},
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "batched",
		Nodes:      []pipeline.Node{compositeNode("batch", "comp_loop")},
	})

	require.True(t, result.Success)
	require.Equal(t, 3, h.direct.callCount("stamp"))
	require.Equal(t, 3, result.Results["batch"]["done"])
}

func TestCompositeConcurrentSiblings(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.composites.defs["comp_scale"] = scaleComposite("comp_scale")
	h.direct.handler = func(call directCall) map[string]any {
		value, _ := call.inputs["value"].(float64)
		return map[string]any{"result": value * 2}
	}

	// Two instances of the same composite share one level; each must keep
	// its own subgraph frame.
	left := compositeNode("left", "comp_scale")
	left.Config = map[string]any{"raw": 10.0}
	right := compositeNode("right", "comp_scale")
	right.Config = map[string]any{"raw": 100.0}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "siblings",
		Nodes:      []pipeline.Node{left, right},
	})

	require.True(t, result.Success)
	require.Equal(t, 20.0, result.Results["left"]["scaled"])
	require.Equal(t, 200.0, result.Results["right"]["scaled"])
}

func TestSplitPinRef(t *testing.T) {
	t.Parallel()
	node, pin, ok := splitPinRef("inner.value")
	require.True(t, ok)
	require.Equal(t, "inner", node)
	require.Equal(t, "value", pin)

	node, pin, ok = splitPinRef("inner.config.value")
	require.True(t, ok)
	require.Equal(t, "inner", node)
	require.Equal(t, "config.value", pin)

	_, _, ok = splitPinRef("no-dot")
	require.False(t, ok)
}
