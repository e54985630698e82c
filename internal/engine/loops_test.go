package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/pipeline"
)

func forLoopNode(id string, config map[string]any) pipeline.Node {
	return pipeline.Node{ID: id, Type: pipeline.NodeForLoop, Config: config}
}

func whileLoopNode(id string, config map[string]any) pipeline.Node {
	return pipeline.Node{ID: id, Type: pipeline.NodeWhileLoop, Config: config}
}

func loopBody(loopID, target string) pipeline.Edge {
	return pipeline.Edge{Source: loopID, SourceHandle: pipeline.LoopBodyHandle, Target: target, TargetHandle: "trigger"}
}

func TestForLoopRunsBodyPerIteration(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "stamp",
		Nodes: []pipeline.Node{
			forLoopNode("repeat", map[string]any{"count": 3}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{loopBody("repeat", "press")},
	})

	require.True(t, result.Success)
	require.Equal(t, 3, h.direct.callCount("stamp"))

	outputs := result.Results["repeat"]
	require.Equal(t, false, outputs["loop_body"])
	require.Equal(t, true, outputs["complete"])
	require.Equal(t, 3, outputs["iterations_completed"])
	require.Equal(t, 2, outputs["index"])

	// Body members execute through the loop, not the level scheduler.
	require.Equal(t, 1, result.NodesExecuted)
	started := h.events.ofType(events.TypePipelineStarted)[0].Payload()
	require.Equal(t, 1, started["node_count"])

	// One scheduling event for the loop node, then one per iteration.
	executing := h.events.ofType(events.TypeNodeExecuting)
	require.Len(t, executing, 4)
	require.NotContains(t, executing[0].Payload(), "iteration")
	for i, e := range executing[1:] {
		payload := e.Payload()
		require.Equal(t, "repeat", payload["node_id"])
		require.Equal(t, i+1, payload["iteration"])
		require.Equal(t, 3, payload["total_iterations"])
	}
	completed := h.events.ofType(events.TypeNodeCompleted)
	require.Len(t, completed, 1)
	require.Equal(t, "repeat", completed[0].Payload()["node_id"])

	// The body's last outputs stay visible in the value store.
	require.Contains(t, result.Results, "press")
}

func TestForLoopCountFromEdge(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.direct.outputs["loadcell/get_value"] = map[string]any{"value": 2.0}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "dynamic",
		Nodes: []pipeline.Node{
			functionNode("measure", "loadcell", "get_value"),
			forLoopNode("repeat", map[string]any{"count": 9}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{
			flow("measure", "value", "repeat", "count"),
			loopBody("repeat", "press"),
		},
	})

	require.True(t, result.Success)
	require.Equal(t, 2, h.direct.callCount("stamp"), "edge-fed count should override config")
	require.Equal(t, 2, result.Results["repeat"]["iterations_completed"])
}

func TestForLoopCountCoercion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		count any
		runs  int
	}{
		{"string number", "4", 4},
		{"garbage string", "lots", 1},
		{"float truncates", 2.9, 2},
		{"negative clamps to zero", -3, 0},
		{"missing defaults to one", nil, 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			config := map[string]any{}
			if tc.count != nil {
				config["count"] = tc.count
			}
			result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
				PipelineID: "coerce",
				Nodes: []pipeline.Node{
					forLoopNode("repeat", config),
					functionNode("press", "press_kit", "stamp"),
				},
				Edges: []pipeline.Edge{loopBody("repeat", "press")},
			})
			require.True(t, result.Success)
			require.Equal(t, tc.runs, h.direct.callCount("stamp"))
			require.Equal(t, tc.runs, result.Results["repeat"]["iterations_completed"])
		})
	}
}

func TestForLoopClampsCount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "runaway",
		Nodes: []pipeline.Node{
			forLoopNode("repeat", map[string]any{"count": 5000}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{loopBody("repeat", "press")},
	})

	require.True(t, result.Success)
	require.Equal(t, pipeline.MaxLoopIterations, h.direct.callCount("stamp"))
	require.Equal(t, pipeline.MaxLoopIterations, result.Results["repeat"]["iterations_completed"])

	executing := h.events.ofType(events.TypeNodeExecuting)
	require.Equal(t, pipeline.MaxLoopIterations, executing[1].Payload()["total_iterations"])
}

func TestForLoopBodyChainRunsInOrder(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "chain",
		Nodes: []pipeline.Node{
			forLoopNode("repeat", map[string]any{"count": 2}),
			functionNode("first", "press_kit", "stamp"),
			functionNode("second", "press_kit", "cure"),
		},
		Edges: []pipeline.Edge{
			loopBody("repeat", "first"),
			flow("first", "complete", "second", "trigger"),
		},
	})

	require.True(t, result.Success)
	require.Equal(t, []string{"stamp", "cure", "stamp", "cure"}, h.direct.functionIDs())
	require.Equal(t, 1, result.NodesExecuted, "chained body nodes stay off the schedule")
}

func TestForLoopIndexVisibleToBody(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "indexed",
		Nodes: []pipeline.Node{
			forLoopNode("repeat", map[string]any{"count": 3}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{
			loopBody("repeat", "press"),
			flow("repeat", "index", "press", "slot"),
		},
	})

	require.True(t, result.Success)
	inputs := h.direct.callInputs("stamp")
	require.Len(t, inputs, 3)
	for i, in := range inputs {
		require.Equal(t, i, in["slot"])
	}
}

func TestNestedForLoops(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "nested",
		Nodes: []pipeline.Node{
			forLoopNode("outer", map[string]any{"count": 2}),
			forLoopNode("inner", map[string]any{"count": 3}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{
			loopBody("outer", "inner"),
			loopBody("inner", "press"),
		},
	})

	require.True(t, result.Success)
	// Each outer pass runs the inner loop (3 stamps) and then the traversal
	// continues through the inner loop's out-edges, reaching press once more
	// with the settled loop outputs: 2 * (3 + 1).
	require.Equal(t, 8, h.direct.callCount("stamp"))
	require.Equal(t, 1, result.NodesExecuted, "only the outer loop is scheduled")
	require.Equal(t, 2, result.Results["outer"]["iterations_completed"])
	require.Equal(t, 3, result.Results["inner"]["iterations_completed"])
}

func TestLoopFollowedByDownstreamNode(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "handoff",
		Nodes: []pipeline.Node{
			forLoopNode("repeat", map[string]any{"count": 2}),
			functionNode("press", "press_kit", "stamp"),
			functionNode("wrap", "press_kit", "wrap_up"),
		},
		Edges: []pipeline.Edge{
			loopBody("repeat", "press"),
			flow("repeat", "complete", "wrap", "trigger"),
		},
	})

	require.True(t, result.Success)
	require.Equal(t, 2, result.NodesExecuted, "loop plus downstream node")
	require.Equal(t, 1, h.direct.callCount("wrap_up"))
	inputs := h.direct.callInputs("wrap_up")
	require.Equal(t, true, inputs[0]["trigger"], "complete pin fires after the loop")
}

func TestWhileLoopConditionExpr(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "bounded",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", map[string]any{"condition_expr": "iteration <= 3"}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{loopBody("poll", "press")},
	})

	require.True(t, result.Success)
	require.Equal(t, 3, h.direct.callCount("stamp"))
	outputs := result.Results["poll"]
	require.Equal(t, 3, outputs["iterations_completed"])
	require.Equal(t, 2, outputs["index"])
}

func TestWhileLoopConditionEdge(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	// The sensor reports "keep going" once, then "stop". The first
	// iteration starts on the default-true condition because the sensor
	// has not produced anything yet.
	var calls int
	h.direct.handler = func(call directCall) map[string]any {
		calls++
		return map[string]any{"continue": calls < 2}
	}

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "sensor-driven",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", nil),
			functionNode("sense", "sensor_sim", "read"),
		},
		Edges: []pipeline.Edge{
			loopBody("poll", "sense"),
			flow("sense", "continue", "poll", "condition"),
		},
	})

	require.True(t, result.Success)
	require.Equal(t, 2, h.direct.callCount("read"))
	require.Equal(t, 2, result.Results["poll"]["iterations_completed"])
}

func TestWhileLoopMaxIterations(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "capped",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", map[string]any{"max_iterations": 4}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{loopBody("poll", "press")},
	})

	require.True(t, result.Success)
	require.Equal(t, 4, h.direct.callCount("stamp"))
	outputs := result.Results["poll"]
	require.Equal(t, 4, outputs["iterations_completed"])
	require.Equal(t, 3, outputs["index"])
	require.Equal(t, true, outputs["complete"])
}

func TestWhileLoopClampsMaxIterations(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "over-capped",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", map[string]any{"max_iterations": 50000}),
			functionNode("press", "press_kit", "stamp"),
		},
		Edges: []pipeline.Edge{loopBody("poll", "press")},
	})

	require.True(t, result.Success)
	require.Equal(t, pipeline.MaxLoopIterations, h.direct.callCount("stamp"))
	require.Equal(t, pipeline.MaxLoopIterations, result.Results["poll"]["iterations_completed"])
}

func TestWhileLoopConditionInitiallyFalse(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		condition any
	}{
		{"boolean false", false},
		{"string no", "no"},
		{"string zero", "0"},
		{"empty string", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
				PipelineID: "never",
				Nodes: []pipeline.Node{
					whileLoopNode("poll", map[string]any{"condition": tc.condition}),
					functionNode("press", "press_kit", "stamp"),
				},
				Edges: []pipeline.Edge{loopBody("poll", "press")},
			})

			require.True(t, result.Success)
			require.Zero(t, h.direct.callCount("stamp"))
			outputs := result.Results["poll"]
			require.Equal(t, 0, outputs["iterations_completed"])
			require.Equal(t, 0, outputs["index"])
			require.Equal(t, true, outputs["complete"])
		})
	}
}

func TestWhileLoopInvalidConditionExpr(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "broken",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", map[string]any{"condition_expr": "iteration <"}),
		},
	})

	require.False(t, result.Success)
	require.Contains(t, result.Error, "invalid condition expression")
}

func TestWhileLoopIterationEventsOmitTotal(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result := h.engine.Execute(context.Background(), &pipeline.Pipeline{
		PipelineID: "telemetry",
		Nodes: []pipeline.Node{
			whileLoopNode("poll", map[string]any{"max_iterations": 2}),
		},
	})
	require.True(t, result.Success)

	executing := h.events.ofType(events.TypeNodeExecuting)
	require.Len(t, executing, 3)
	for i, e := range executing[1:] {
		payload := e.Payload()
		require.Equal(t, i+1, payload["iteration"])
		require.NotContains(t, payload, "total_iterations")
	}
}

func TestLoopMembersTraversal(t *testing.T) {
	t.Parallel()
	def := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			functionNode("prep", "press_kit", "prep"),
			forLoopNode("repeat", nil),
			functionNode("body_a", "press_kit", "stamp"),
			functionNode("body_b", "press_kit", "cure"),
			forLoopNode("tail_loop", nil),
			functionNode("wrap", "press_kit", "wrap_up"),
		},
		Edges: []pipeline.Edge{
			flow("prep", "complete", "repeat", "trigger"),
			loopBody("repeat", "body_a"),
			flow("body_a", "complete", "body_b", "trigger"),
			flow("body_b", "complete", "tail_loop", "trigger"),
			flow("repeat", "complete", "wrap", "trigger"),
		},
	}

	members := loopMembers(def)
	require.True(t, members["body_a"])
	require.True(t, members["body_b"])
	require.False(t, members["prep"])
	require.False(t, members["wrap"])
	require.False(t, members["repeat"])
	require.False(t, members["tail_loop"], "downstream loops keep their own schedule")
}
