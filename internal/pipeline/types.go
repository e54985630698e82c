package pipeline

import "time"

// NodeType discriminates the executor used for a node.
type NodeType string

const (
	NodeFunction  NodeType = "function"
	NodeComposite NodeType = "composite"
	NodeForLoop   NodeType = "for_loop"
	NodeWhileLoop NodeType = "while_loop"
)

// Valid reports whether the node type is one of the known variants.
func (t NodeType) Valid() bool {
	switch t {
	case NodeFunction, NodeComposite, NodeForLoop, NodeWhileLoop:
		return true
	default:
		return false
	}
}

// IsLoop reports whether the node type is a loop variant.
func (t NodeType) IsLoop() bool {
	return t == NodeForLoop || t == NodeWhileLoop
}

// LogicPluginID is the reserved plugin id dispatched to the engine's
// built-in function table instead of the plugin catalog.
const LogicPluginID = "logic"

// MaxCompositeDepth bounds composite nesting during execution.
const MaxCompositeDepth = 5

// MaxLoopIterations bounds the iteration count of a single loop node.
const MaxLoopIterations = 1000

// LoopBodyHandle is the output handle that connects a loop node to the
// first nodes of its body subgraph.
const LoopBodyHandle = "loop_body"

// Position is an editor hint and has no execution semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one vertex of a pipeline graph.
type Node struct {
	ID             string         `json:"id" validate:"required"`
	Type           NodeType       `json:"type" validate:"required"`
	PluginID       string         `json:"plugin_id,omitempty"`
	DeviceInstance string         `json:"device_instance,omitempty"`
	FunctionID     string         `json:"function_id,omitempty"`
	CompositeID    string         `json:"composite_id,omitempty"`
	Subgraph       *Subgraph      `json:"subgraph,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
	Label          string         `json:"label,omitempty"`
	Position       *Position      `json:"position,omitempty"`

	// Inputs and Outputs carry the pin mappings of an inline composite
	// node, mirroring the fields of a stored Composite.
	Inputs  []CompositeInput  `json:"inputs,omitempty"`
	Outputs []CompositeOutput `json:"outputs,omitempty"`

	// Data holds editor metadata (pin specs, display state). Preserved
	// verbatim, never interpreted during execution.
	Data map[string]any `json:"data,omitempty"`
}

// DisplayLabel returns the node label, falling back to the id.
func (n *Node) DisplayLabel() string {
	if n == nil {
		return ""
	}
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed dataflow connection between two node pins.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Subgraph is the embedded node/edge set of a composite or an inline
// composite node.
type Subgraph struct {
	Nodes []Node `json:"nodes" validate:"omitempty,dive"`
	Edges []Edge `json:"edges" validate:"omitempty,dive"`
}

// Pipeline is a complete executable definition.
type Pipeline struct {
	PipelineID string         `json:"pipeline_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Nodes      []Node         `json:"nodes" validate:"omitempty,dive"`
	Edges      []Edge         `json:"edges" validate:"omitempty,dive"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// FindNode returns the node with the given id, or nil.
func (p *Pipeline) FindNode(id string) *Node {
	if p == nil {
		return nil
	}
	for i := range p.Nodes {
		if p.Nodes[i].ID == id {
			return &p.Nodes[i]
		}
	}
	return nil
}

// CompositeInput maps an external input name onto an internal node pin.
// MapsTo has the form "<internal-node-id>.<input-name>".
type CompositeInput struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type,omitempty" validate:"omitempty,value_type"`
	MapsTo       string `json:"maps_to" validate:"required,pin_ref"`
	Description  string `json:"description,omitempty"`
	DefaultValue any    `json:"default_value,omitempty"`
}

// CompositeOutput projects an internal node pin as an external output.
// MapsFrom has the form "<internal-node-id>.<output-pin>".
type CompositeOutput struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type,omitempty" validate:"omitempty,value_type"`
	MapsFrom    string `json:"maps_from" validate:"required,pin_ref"`
	Description string `json:"description,omitempty"`
}

// Composite is a reusable subgraph with declared input/output mappings.
type Composite struct {
	CompositeID string            `json:"composite_id,omitempty"`
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description,omitempty"`
	Subgraph    Subgraph          `json:"subgraph"`
	Inputs      []CompositeInput  `json:"inputs,omitempty" validate:"omitempty,dive"`
	Outputs     []CompositeOutput `json:"outputs,omitempty" validate:"omitempty,dive"`
	Category    string            `json:"category,omitempty"`
	Color       string            `json:"color,omitempty"`
	Version     string            `json:"version,omitempty"`
	Author      string            `json:"author,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
}

// ApplyDefaults fills presentation metadata left empty by the author.
func (c *Composite) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Name == "" {
		c.Name = "Untitled Composite"
	}
	if c.Category == "" {
		c.Category = "Composite"
	}
	if c.Color == "" {
		c.Color = "#9b59b6"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
}

// ValueTypes is the closed set of pin/schema types. "trigger" coerces as a
// boolean; "any" accepts everything.
var ValueTypes = map[string]struct{}{
	"number":  {},
	"string":  {},
	"boolean": {},
	"array":   {},
	"object":  {},
	"trigger": {},
	"any":     {},
}
