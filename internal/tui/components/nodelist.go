// Package components holds the building blocks of the terminal watch
// screen: the completion bar, the ordered node list and the run summary.
package components

// Node display statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// NodeState is the rendered state of one pipeline node.
type NodeState struct {
	NodeID          string
	Label           string
	Status          string
	ExecutionTime   float64
	Iteration       int
	TotalIterations int
	Message         string
}

// NodeList orders node states for rendering.
type NodeList struct {
	entries []NodeState
}

// NewNodeList builds the list in the given order, skipping ids without a
// recorded state.
func NewNodeList(order []string, nodes map[string]NodeState) NodeList {
	entries := make([]NodeState, 0, len(order))
	for _, id := range order {
		if state, ok := nodes[id]; ok {
			entries = append(entries, state)
		}
	}
	return NodeList{entries: entries}
}

// Entries returns the ordered node states.
func (l NodeList) Entries() []NodeState {
	clone := make([]NodeState, len(l.entries))
	copy(clone, l.entries)
	return clone
}
