// Package events defines the telemetry events published on the bus during
// pipeline execution and device lifecycle changes. Payload maps are the wire
// contract consumed by WebSocket observers.
package events

import "time"

// Event type identifiers, also the "type" field of every payload.
const (
	TypePipelineStarted    = "pipeline_started"
	TypeNodeExecuting      = "node_executing"
	TypeNodeCompleted      = "node_completed"
	TypePipelineCompleted  = "pipeline_completed"
	TypePipelineError      = "pipeline_error"
	TypeDeviceConnected    = "device_connected"
	TypeDeviceDisconnected = "device_disconnected"
	TypeDeviceError        = "device_error"
)

// AllTypes lists every event type, in stream order groups.
var AllTypes = []string{
	TypePipelineStarted,
	TypeNodeExecuting,
	TypeNodeCompleted,
	TypePipelineCompleted,
	TypePipelineError,
	TypeDeviceConnected,
	TypeDeviceDisconnected,
	TypeDeviceError,
}

// Event is anything publishable on the bus.
type Event interface {
	EventType() string
	Payload() map[string]any
}

func stamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

// PipelineStarted marks the beginning of a pipeline run.
type PipelineStarted struct {
	PipelineID   string
	PipelineName string
	Timestamp    time.Time
	NodeCount    int
}

func (e PipelineStarted) EventType() string { return TypePipelineStarted }

func (e PipelineStarted) Payload() map[string]any {
	return map[string]any{
		"type":          TypePipelineStarted,
		"pipeline_id":   e.PipelineID,
		"pipeline_name": e.PipelineName,
		"timestamp":     stamp(e.Timestamp),
		"node_count":    e.NodeCount,
	}
}

// NodeExecuting is published before a node (or one loop iteration) runs.
// Iteration and TotalIterations are zero outside loop nodes.
type NodeExecuting struct {
	PipelineID      string
	NodeID          string
	Label           string
	NodeType        string
	FunctionID      string
	Timestamp       time.Time
	Iteration       int
	TotalIterations int
}

func (e NodeExecuting) EventType() string { return TypeNodeExecuting }

func (e NodeExecuting) Payload() map[string]any {
	payload := map[string]any{
		"type":        TypeNodeExecuting,
		"pipeline_id": e.PipelineID,
		"node_id":     e.NodeID,
		"label":       e.Label,
		"node_type":   e.NodeType,
		"function_id": nil,
		"timestamp":   stamp(e.Timestamp),
	}
	if e.FunctionID != "" {
		payload["function_id"] = e.FunctionID
	}
	if e.Iteration > 0 {
		payload["iteration"] = e.Iteration
	}
	if e.TotalIterations > 0 {
		payload["total_iterations"] = e.TotalIterations
	}
	return payload
}

// NodeCompleted carries a node's outputs and the elapsed seconds of the
// level it ran in.
type NodeCompleted struct {
	PipelineID    string
	NodeID        string
	Label         string
	Timestamp     time.Time
	Outputs       map[string]any
	ExecutionTime float64
}

func (e NodeCompleted) EventType() string { return TypeNodeCompleted }

func (e NodeCompleted) Payload() map[string]any {
	outputs := e.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}
	return map[string]any{
		"type":           TypeNodeCompleted,
		"pipeline_id":    e.PipelineID,
		"node_id":        e.NodeID,
		"label":          e.Label,
		"timestamp":      stamp(e.Timestamp),
		"outputs":        outputs,
		"execution_time": e.ExecutionTime,
	}
}

// PipelineCompleted marks a successful run.
type PipelineCompleted struct {
	PipelineID    string
	Timestamp     time.Time
	Success       bool
	ExecutionTime float64
	NodesExecuted int
}

func (e PipelineCompleted) EventType() string { return TypePipelineCompleted }

func (e PipelineCompleted) Payload() map[string]any {
	return map[string]any{
		"type":           TypePipelineCompleted,
		"pipeline_id":    e.PipelineID,
		"timestamp":      stamp(e.Timestamp),
		"success":        e.Success,
		"execution_time": e.ExecutionTime,
		"nodes_executed": e.NodesExecuted,
	}
}

// PipelineError marks a failed run. NodeID and ErrorType are empty when the
// failure is not attributable to a single node.
type PipelineError struct {
	PipelineID   string
	Timestamp    time.Time
	ErrorMessage string
	NodeID       string
	ErrorType    string
}

func (e PipelineError) EventType() string { return TypePipelineError }

func (e PipelineError) Payload() map[string]any {
	payload := map[string]any{
		"type":          TypePipelineError,
		"pipeline_id":   e.PipelineID,
		"timestamp":     stamp(e.Timestamp),
		"error_message": e.ErrorMessage,
		"node_id":       nil,
		"error_type":    nil,
	}
	if e.NodeID != "" {
		payload["node_id"] = e.NodeID
	}
	if e.ErrorType != "" {
		payload["error_type"] = e.ErrorType
	}
	return payload
}

// DeviceConnected is published after a device reaches connected.
type DeviceConnected struct {
	DeviceID  string
	PluginID  string
	Timestamp time.Time
}

func (e DeviceConnected) EventType() string { return TypeDeviceConnected }

func (e DeviceConnected) Payload() map[string]any {
	return map[string]any{
		"type":      TypeDeviceConnected,
		"device_id": e.DeviceID,
		"plugin_id": e.PluginID,
		"timestamp": stamp(e.Timestamp),
		"status":    "connected",
	}
}

// DeviceDisconnected is published after a device disconnects.
type DeviceDisconnected struct {
	DeviceID  string
	Timestamp time.Time
	Reason    string
}

func (e DeviceDisconnected) EventType() string { return TypeDeviceDisconnected }

func (e DeviceDisconnected) Payload() map[string]any {
	reason := e.Reason
	if reason == "" {
		reason = "requested"
	}
	return map[string]any{
		"type":      TypeDeviceDisconnected,
		"device_id": e.DeviceID,
		"timestamp": stamp(e.Timestamp),
		"reason":    reason,
	}
}

// DeviceError is published when a device enters the error state.
type DeviceError struct {
	DeviceID     string
	Timestamp    time.Time
	ErrorMessage string
	ErrorType    string
}

func (e DeviceError) EventType() string { return TypeDeviceError }

func (e DeviceError) Payload() map[string]any {
	payload := map[string]any{
		"type":          TypeDeviceError,
		"device_id":     e.DeviceID,
		"timestamp":     stamp(e.Timestamp),
		"error_message": e.ErrorMessage,
		"error_type":    nil,
	}
	if e.ErrorType != "" {
		payload["error_type"] = e.ErrorType
	}
	return payload
}
