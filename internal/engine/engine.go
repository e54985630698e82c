// Package engine executes pipeline graphs. Nodes are grouped into
// dependency levels that run concurrently, loop and composite nodes expand
// their own subgraphs, and progress streams over the event bus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/graph"
	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// FunctionRunner executes a function bound to a registered device instance.
type FunctionRunner interface {
	Execute(ctx context.Context, instanceID, functionID string, inputs map[string]any) (map[string]any, error)
}

// DirectRunner executes a plugin function on a throwaway device instance.
type DirectRunner interface {
	ExecuteDirect(ctx context.Context, pluginID, functionID string, inputs map[string]any) map[string]any
}

// CompositeResolver loads stored composite definitions.
type CompositeResolver interface {
	Get(compositeID string) (*pipeline.Composite, error)
}

// Engine runs pipeline definitions against the device layer.
type Engine struct {
	devices    FunctionRunner
	direct     DirectRunner
	composites CompositeResolver
	bus        *bus.Bus
	log        *logger.Logger
}

// New builds an Engine. composites may be nil when no composite store is
// configured, and b may be nil to run without telemetry.
func New(devices FunctionRunner, direct DirectRunner, composites CompositeResolver, b *bus.Bus, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		devices:    devices,
		direct:     direct,
		composites: composites,
		bus:        b,
		log:        log,
	}
}

// Result reports the outcome of one pipeline execution. Results holds the
// final value store, keyed by node id.
type Result struct {
	Success       bool                      `json:"success"`
	NodesExecuted int                       `json:"nodes_executed"`
	ExecutionTime float64                   `json:"execution_time"`
	Results       map[string]map[string]any `json:"results"`
	Error         string                    `json:"error,omitempty"`
}

// Execute runs a pipeline definition to completion. The returned Result is
// never nil: failures are reported through Success and Error, mirroring the
// pipeline_error event published on the bus.
func (e *Engine) Execute(ctx context.Context, def *pipeline.Pipeline) *Result {
	start := time.Now()
	sc := &scope{def: def, frame: newFrame()}

	executed, err := e.runPipeline(ctx, sc)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		e.log.Errorf(err, "pipeline '%s' failed", sc.pipelineID())
		e.publish(ctx, events.PipelineError{
			PipelineID:   sc.pipelineID(),
			ErrorMessage: err.Error(),
			NodeID:       failedNode(err),
			ErrorType:    rferrors.TypeName(err),
		})
		return &Result{
			ExecutionTime: elapsed,
			Results:       sc.frame.snapshot(),
			Error:         err.Error(),
		}
	}

	e.publish(ctx, events.PipelineCompleted{
		PipelineID:    sc.pipelineID(),
		Success:       true,
		ExecutionTime: elapsed,
		NodesExecuted: executed,
	})
	return &Result{
		Success:       true,
		NodesExecuted: executed,
		ExecutionTime: elapsed,
		Results:       sc.frame.snapshot(),
	}
}

// runPipeline validates the graph, schedules it into levels and runs them
// in order. It returns the number of scheduled nodes that completed.
func (e *Engine) runPipeline(ctx context.Context, sc *scope) (int, error) {
	g := graph.Build(sc.def.Nodes, sc.def.Edges)
	if !g.IsDAG() {
		return 0, rferrors.NewCircularDependencyError(g.Cycles())
	}

	levels := scheduledLevels(sc.def)
	total := 0
	for _, level := range levels {
		total += len(level)
	}

	e.publish(ctx, events.PipelineStarted{
		PipelineID:   sc.pipelineID(),
		PipelineName: sc.pipelineName(),
		NodeCount:    total,
	})
	e.log.Infof("executing pipeline '%s': %d nodes in %d levels", sc.pipelineID(), total, len(levels))

	executed := 0
	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			return executed, err
		}
		if err := e.runLevel(ctx, sc, level); err != nil {
			return executed, err
		}
		executed += len(level)
	}
	return executed, nil
}

// scheduledLevels groups a definition into parallel execution levels,
// leaving out loop body members. Those run when their loop node iterates,
// not on the level clock.
func scheduledLevels(def *pipeline.Pipeline) [][]string {
	members := loopMembers(def)
	if len(members) == 0 {
		return graph.Build(def.Nodes, def.Edges).Levels()
	}
	nodes := make([]pipeline.Node, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		if !members[n.ID] {
			nodes = append(nodes, n)
		}
	}
	edges := make([]pipeline.Edge, 0, len(def.Edges))
	for _, e := range def.Edges {
		if !members[e.Source] && !members[e.Target] {
			edges = append(edges, e)
		}
	}
	return graph.Build(nodes, edges).Levels()
}

// runLevel executes one level's nodes concurrently. Every node gets a
// node_executing event up front and a node_completed event once the whole
// level has finished; the reported execution time is the level's wall time.
func (e *Engine) runLevel(ctx context.Context, sc *scope, level []string) error {
	pid := sc.pipelineID()
	for _, id := range level {
		node := sc.def.FindNode(id)
		if node == nil {
			continue
		}
		e.publish(ctx, events.NodeExecuting{
			PipelineID: pid,
			NodeID:     id,
			Label:      node.DisplayLabel(),
			NodeType:   string(node.Type),
			FunctionID: node.FunctionID,
		})
	}

	start := time.Now()
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, id := range level {
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			if err := e.executeNode(ctx, sc, nodeID, 0); err != nil {
				once.Do(func() { firstErr = err })
			}
		}(id)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	elapsed := time.Since(start).Seconds()
	for _, id := range level {
		node := sc.def.FindNode(id)
		outputs, _ := sc.frame.get(id)
		e.publish(ctx, events.NodeCompleted{
			PipelineID:    pid,
			NodeID:        id,
			Label:         node.DisplayLabel(),
			Outputs:       outputs,
			ExecutionTime: elapsed,
		})
	}
	return nil
}

// executeNode dispatches a node to its executor and stores the outputs in
// the scope frame. depth counts composite nesting.
func (e *Engine) executeNode(ctx context.Context, sc *scope, nodeID string, depth int) error {
	node := sc.def.FindNode(nodeID)
	if node == nil {
		return rferrors.NewNodeExecutionError(nodeID, "",
			fmt.Errorf("node '%s' not found in pipeline definition", nodeID))
	}

	var (
		outputs map[string]any
		err     error
	)
	switch node.Type {
	case pipeline.NodeFunction:
		outputs, err = e.executeFunction(ctx, sc, node)
	case pipeline.NodeComposite:
		outputs, err = e.executeComposite(ctx, sc, node, depth)
	case pipeline.NodeForLoop:
		outputs, err = e.executeForLoop(ctx, sc, node, depth)
	case pipeline.NodeWhileLoop:
		outputs, err = e.executeWhileLoop(ctx, sc, node, depth)
	default:
		return rferrors.NewValidationError("type",
			fmt.Sprintf("unknown node type: %s", node.Type), nil)
	}
	if err != nil {
		var nodeErr *rferrors.NodeExecutionError
		if errors.As(err, &nodeErr) {
			return err
		}
		return rferrors.NewNodeExecutionError(node.ID, node.Label, err)
	}

	if outputs == nil {
		outputs = map[string]any{}
	}
	sc.frame.set(node.ID, outputs)
	return nil
}

// executeFunction resolves a device-function node to one of the three
// execution paths: engine built-ins, a registered device instance, or a
// throwaway instance created by the catalog.
func (e *Engine) executeFunction(ctx context.Context, sc *scope, node *pipeline.Node) (map[string]any, error) {
	inputs := e.collectInputs(sc, node)

	switch {
	case node.PluginID == pipeline.LogicPluginID:
		return e.runBuiltin(ctx, node.FunctionID, inputs)
	case node.DeviceInstance == "":
		if e.direct == nil {
			return nil, fmt.Errorf("no plugin catalog available for plugin '%s'", node.PluginID)
		}
		return e.direct.ExecuteDirect(ctx, node.PluginID, node.FunctionID, inputs), nil
	default:
		if e.devices == nil {
			return nil, fmt.Errorf("no device registry available for instance '%s'", node.DeviceInstance)
		}
		return e.devices.Execute(ctx, node.DeviceInstance, node.FunctionID, inputs)
	}
}

// collectInputs assembles a node's input map. Config values come first,
// then any injected composite inputs, then values flowing in over edges.
// Later sources override earlier ones.
func (e *Engine) collectInputs(sc *scope, node *pipeline.Node) map[string]any {
	inputs := make(map[string]any, len(node.Config))
	for k, v := range node.Config {
		inputs[k] = v
	}
	if injected, ok := sc.frame.get(inputKey(node.ID)); ok {
		for k, v := range injected {
			inputs[k] = v
		}
	}
	for _, edge := range sc.def.Edges {
		if edge.Target != node.ID {
			continue
		}
		outputs, ok := sc.frame.get(edge.Source)
		if !ok {
			e.log.Debugf("node '%s': source '%s' has no outputs yet", node.ID, edge.Source)
			continue
		}
		value, ok := outputs[edge.SourceHandle]
		if !ok {
			e.log.Debugf("node '%s': source '%s' has no output pin '%s'", node.ID, edge.Source, edge.SourceHandle)
			continue
		}
		inputs[edge.TargetHandle] = value
	}
	return inputs
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, event)
}

// failedNode extracts the failing node id from an execution error chain.
func failedNode(err error) string {
	var nodeErr *rferrors.NodeExecutionError
	if errors.As(err, &nodeErr) {
		return nodeErr.NodeID
	}
	return ""
}
