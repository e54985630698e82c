package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rigflow/rigflow/internal/graph"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// executeComposite expands a composite node into its subgraph and runs it
// in an isolated child scope. The parent frame only ever sees the declared
// output mappings; everything the subgraph computes stays in the child
// frame.
func (e *Engine) executeComposite(ctx context.Context, sc *scope, node *pipeline.Node, depth int) (map[string]any, error) {
	if depth >= pipeline.MaxCompositeDepth {
		return nil, rferrors.NewNodeExecutionError(node.ID, node.Label,
			fmt.Errorf("maximum composite nesting depth (%d) exceeded", pipeline.MaxCompositeDepth))
	}

	subgraph, inputDefs, outputDefs, err := e.resolveComposite(node)
	if err != nil {
		return nil, err
	}
	if subgraph == nil {
		return nil, rferrors.NewNodeExecutionError(node.ID, node.Label,
			fmt.Errorf("composite definition not found for '%s'", node.CompositeID))
	}
	if len(subgraph.Nodes) == 0 {
		e.log.Warnf("composite '%s' has an empty subgraph", node.ID)
		return map[string]any{}, nil
	}

	compositeID := node.CompositeID
	if compositeID != "" {
		for _, id := range sc.expanding {
			if id == compositeID {
				return nil, rferrors.NewCircularReferenceError(compositeID,
					fmt.Sprintf("composite '%s' expands itself", compositeID))
			}
		}
	}

	external := e.collectInputs(sc, node)

	child := &scope{
		def: &pipeline.Pipeline{
			PipelineID: sc.pipelineID() + "." + node.ID,
			Name:       "Subgraph: " + node.DisplayLabel(),
			Nodes:      subgraph.Nodes,
			Edges:      subgraph.Edges,
		},
		frame:     newFrame(),
		expanding: sc.expanding,
	}
	if compositeID != "" {
		child.expanding = make([]string, len(sc.expanding)+1)
		copy(child.expanding, sc.expanding)
		child.expanding[len(sc.expanding)] = compositeID
	}

	for _, mapping := range inputDefs {
		value, ok := external[mapping.Name]
		if !ok {
			continue
		}
		targetNode, targetPin, ok := splitPinRef(mapping.MapsTo)
		if !ok {
			continue
		}
		child.frame.setInput(targetNode, targetPin, value)
	}

	g := graph.Build(child.def.Nodes, child.def.Edges)
	if !g.IsDAG() {
		return nil, rferrors.NewCircularDependencyError(g.Cycles())
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	members := loopMembers(child.def)
	for _, subID := range order {
		if members[subID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.executeNode(ctx, child, subID, depth+1); err != nil {
			return nil, err
		}
	}

	outputs := make(map[string]any, len(outputDefs))
	for _, mapping := range outputDefs {
		sourceNode, sourcePin, ok := splitPinRef(mapping.MapsFrom)
		if !ok {
			continue
		}
		produced, ok := child.frame.get(sourceNode)
		if !ok {
			continue
		}
		if value, ok := produced[sourcePin]; ok {
			outputs[mapping.Name] = value
		}
	}
	return outputs, nil
}

// resolveComposite finds the subgraph and pin mappings of a composite
// node: inline definitions win, then the composite store. A missing store
// entry resolves to nil rather than an error so the caller can report it
// against the node.
func (e *Engine) resolveComposite(node *pipeline.Node) (*pipeline.Subgraph, []pipeline.CompositeInput, []pipeline.CompositeOutput, error) {
	if node.Subgraph != nil {
		return node.Subgraph, node.Inputs, node.Outputs, nil
	}
	if e.composites == nil || node.CompositeID == "" {
		return nil, nil, nil, nil
	}
	c, err := e.composites.Get(node.CompositeID)
	if err != nil {
		var notFound *rferrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, err
	}
	if c == nil {
		return nil, nil, nil, nil
	}
	return &c.Subgraph, c.Inputs, c.Outputs, nil
}

// splitPinRef splits a "node.pin" mapping reference at the first dot.
func splitPinRef(ref string) (nodeID, pin string, ok bool) {
	i := strings.Index(ref, ".")
	if i < 0 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}
