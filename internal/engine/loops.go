package engine

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rigflow/rigflow/internal/device"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// executeForLoop runs the loop body subgraph a fixed number of times. The
// iteration counters are published on the loop node's own outputs before
// each pass, so body nodes can read index and iteration over edges.
func (e *Engine) executeForLoop(ctx context.Context, sc *scope, node *pipeline.Node, depth int) (map[string]any, error) {
	inputs := e.collectInputs(sc, node)

	count := 1
	if raw, ok := inputs["count"]; ok {
		count = coerceInt(raw, 1)
	}
	if count < 0 {
		count = 0
	}
	if count > pipeline.MaxLoopIterations {
		e.log.Warnf("for loop '%s': count %d exceeds limit, clamping to %d",
			node.ID, count, pipeline.MaxLoopIterations)
		count = pipeline.MaxLoopIterations
	}

	starts := bodyTargets(sc.def, node.ID)
	pid := sc.pipelineID()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc.frame.set(node.ID, map[string]any{
			"loop_body": true,
			"index":     i,
			"iteration": i + 1,
			"total":     count,
		})
		e.publish(ctx, events.NodeExecuting{
			PipelineID:      pid,
			NodeID:          node.ID,
			Label:           node.DisplayLabel(),
			NodeType:        string(node.Type),
			Iteration:       i + 1,
			TotalIterations: count,
		})
		if err := e.runLoopBody(ctx, sc, starts, depth); err != nil {
			return nil, err
		}
	}

	lastIndex := count - 1
	if count <= 0 {
		lastIndex = 0
	}
	return map[string]any{
		"loop_body":            false,
		"index":                lastIndex,
		"complete":             true,
		"iterations_completed": count,
	}, nil
}

// executeWhileLoop runs the loop body until its condition turns false or
// the iteration cap is reached. The condition is re-collected before every
// pass, so a body node can feed it back over an edge. When absent it
// defaults to true and only max_iterations stops the loop.
func (e *Engine) executeWhileLoop(ctx context.Context, sc *scope, node *pipeline.Node, depth int) (map[string]any, error) {
	maxIterations := device.ConfigInt(node.Config, "max_iterations", pipeline.MaxLoopIterations)
	if maxIterations > pipeline.MaxLoopIterations {
		e.log.Warnf("while loop '%s': max_iterations %d exceeds limit, clamping to %d",
			node.ID, maxIterations, pipeline.MaxLoopIterations)
		maxIterations = pipeline.MaxLoopIterations
	}

	var program *vm.Program
	if src := device.ConfigString(node.Config, "condition_expr", ""); src != "" {
		compiled, err := expr.Compile(src)
		if err != nil {
			return nil, rferrors.NewValidationError("condition_expr",
				fmt.Sprintf("invalid condition expression: %v", err), err)
		}
		program = compiled
	}

	starts := bodyTargets(sc.def, node.ID)
	pid := sc.pipelineID()
	iteration := 0
	for iteration < maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inputs := e.collectInputs(sc, node)
		proceed := true
		if program != nil {
			value, err := expr.Run(program, conditionEnv(iteration, inputs))
			if err != nil {
				return nil, fmt.Errorf("condition expression failed: %w", err)
			}
			proceed = truthy(value)
		} else if raw, ok := inputs["condition"]; ok {
			proceed = truthy(raw)
		}
		if !proceed {
			break
		}

		sc.frame.set(node.ID, map[string]any{
			"loop_body": true,
			"index":     iteration,
			"iteration": iteration + 1,
		})
		e.publish(ctx, events.NodeExecuting{
			PipelineID: pid,
			NodeID:     node.ID,
			Label:      node.DisplayLabel(),
			NodeType:   string(node.Type),
			Iteration:  iteration + 1,
		})
		if err := e.runLoopBody(ctx, sc, starts, depth); err != nil {
			return nil, err
		}
		iteration++
	}

	lastIndex := iteration - 1
	if iteration <= 0 {
		lastIndex = 0
	}
	return map[string]any{
		"loop_body":            false,
		"index":                lastIndex,
		"complete":             true,
		"iterations_completed": iteration,
	}, nil
}

// conditionEnv is the environment a while condition expression evaluates
// in: iteration counters plus the collected inputs, which are spread at the
// top level for direct reference and nested under "inputs".
func conditionEnv(iteration int, inputs map[string]any) map[string]any {
	env := make(map[string]any, len(inputs)+3)
	for k, v := range inputs {
		env[k] = v
	}
	env["index"] = iteration
	env["iteration"] = iteration + 1
	env["inputs"] = inputs
	return env
}

// runLoopBody executes one iteration of a loop body, breadth-first from
// the loop_body targets. Each node runs once per iteration even when it is
// reachable from several starts. Downstream loop nodes are not entered;
// they run on their own schedule.
func (e *Engine) runLoopBody(ctx context.Context, sc *scope, starts []string, depth int) error {
	visited := make(map[string]bool)
	queue := append([]string(nil), starts...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if err := e.executeNode(ctx, sc, id, depth+1); err != nil {
			return err
		}
		for _, edge := range sc.def.Edges {
			if edge.Source != id || visited[edge.Target] {
				continue
			}
			if target := sc.def.FindNode(edge.Target); target != nil && target.Type.IsLoop() {
				continue
			}
			queue = append(queue, edge.Target)
		}
	}
	return nil
}

// bodyTargets returns the nodes wired to a loop node's loop_body handle.
func bodyTargets(def *pipeline.Pipeline, loopID string) []string {
	var targets []string
	for _, edge := range def.Edges {
		if edge.Source == loopID && edge.SourceHandle == pipeline.LoopBodyHandle {
			targets = append(targets, edge.Target)
		}
	}
	return targets
}

// loopMembers returns every node reachable from a loop_body handle,
// following the same traversal the iterations use. The scheduler leaves
// these nodes out; their loop drives them instead.
func loopMembers(def *pipeline.Pipeline) map[string]bool {
	members := make(map[string]bool)
	for i := range def.Nodes {
		loop := &def.Nodes[i]
		if !loop.Type.IsLoop() {
			continue
		}
		queue := bodyTargets(def, loop.ID)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if members[id] {
				continue
			}
			members[id] = true
			for _, edge := range def.Edges {
				if edge.Source != id || members[edge.Target] {
					continue
				}
				if target := def.FindNode(edge.Target); target != nil && target.Type.IsLoop() {
					continue
				}
				queue = append(queue, edge.Target)
			}
		}
	}
	return members
}
