package errors

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError captures definition or request validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *ValidationError) Details() map[string]any {
	if e == nil || e.Field == "" {
		return nil
	}
	return map[string]any{"field": e.Field}
}

// NotFoundError reports a missing resource by type and id.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// Details returns the wire-form details map.
func (e *NotFoundError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"resource_type": e.Resource, "resource_id": e.ID}
}

// AlreadyExistsError reports a duplicate resource id.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// NewAlreadyExistsError constructs an AlreadyExistsError.
func NewAlreadyExistsError(resource, id string) error {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s '%s' already exists", e.Resource, e.ID)
}

// Details returns the wire-form details map.
func (e *AlreadyExistsError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"resource_type": e.Resource, "resource_id": e.ID}
}

// InvalidStateError reports an operation attempted in the wrong state.
type InvalidStateError struct {
	Message string
	State   string
}

// NewInvalidStateError constructs an InvalidStateError.
func NewInvalidStateError(message, state string) error {
	return &InvalidStateError{Message: message, State: state}
}

func (e *InvalidStateError) Error() string {
	if e == nil {
		return ""
	}
	if e.State != "" {
		return fmt.Sprintf("invalid state (%s): %s", e.State, e.Message)
	}
	return fmt.Sprintf("invalid state: %s", e.Message)
}

// Details returns the wire-form details map.
func (e *InvalidStateError) Details() map[string]any {
	if e == nil || e.State == "" {
		return nil
	}
	return map[string]any{"current_state": e.State}
}

// PipelineExecutionError represents a failure of a whole pipeline run.
type PipelineExecutionError struct {
	PipelineID string
	Message    string
	Err        error
}

// NewPipelineExecutionError constructs a PipelineExecutionError.
func NewPipelineExecutionError(pipelineID, message string, err error) error {
	return &PipelineExecutionError{PipelineID: pipelineID, Message: message, Err: err}
}

func (e *PipelineExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.PipelineID != "" {
		return fmt.Sprintf("pipeline '%s' failed: %s", e.PipelineID, e.Message)
	}
	return fmt.Sprintf("pipeline execution failed: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PipelineExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *PipelineExecutionError) Details() map[string]any {
	if e == nil || e.PipelineID == "" {
		return nil
	}
	return map[string]any{"pipeline_id": e.PipelineID}
}

// NodeExecutionError represents a runtime failure of a single node.
type NodeExecutionError struct {
	NodeID string
	Label  string
	Err    error
}

// NewNodeExecutionError constructs a NodeExecutionError.
func NewNodeExecutionError(nodeID, label string, err error) error {
	if label == "" {
		label = nodeID
	}
	return &NodeExecutionError{NodeID: nodeID, Label: label, Err: err}
}

func (e *NodeExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Label != "" && e.Label != e.NodeID {
		return fmt.Sprintf("node '%s' (%s) failed: %v", e.NodeID, e.Label, e.Err)
	}
	return fmt.Sprintf("node '%s' failed: %v", e.NodeID, e.Err)
}

// Unwrap exposes the root error.
func (e *NodeExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *NodeExecutionError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"node_id": e.NodeID, "node_label": e.Label}
}

// CircularDependencyError reports that a graph is not a DAG. Cycle holds one
// sample cycle; Cycles holds every simple cycle found.
type CircularDependencyError struct {
	Cycle  []string
	Cycles [][]string
}

// NewCircularDependencyError constructs a CircularDependencyError.
func NewCircularDependencyError(cycles [][]string) error {
	e := &CircularDependencyError{Cycles: cycles}
	if len(cycles) > 0 {
		e.Cycle = cycles[0]
	}
	return e
}

func (e *CircularDependencyError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Cycle) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// Details returns the wire-form details map.
func (e *CircularDependencyError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"cycles": e.Cycles}
}

// CircularReferenceError reports a composite that includes itself.
type CircularReferenceError struct {
	CompositeID string
	Message     string
}

// NewCircularReferenceError constructs a CircularReferenceError.
func NewCircularReferenceError(compositeID, message string) error {
	if message == "" {
		message = fmt.Sprintf("composite '%s' references itself", compositeID)
	}
	return &CircularReferenceError{CompositeID: compositeID, Message: message}
}

func (e *CircularReferenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("circular composite reference: %s", e.Message)
}

// Details returns the wire-form details map.
func (e *CircularReferenceError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"composite_id": e.CompositeID}
}

// DeviceConnectionError reports a failed connect or disconnect.
type DeviceConnectionError struct {
	InstanceID string
	Message    string
	Err        error
}

// NewDeviceConnectionError constructs a DeviceConnectionError.
func NewDeviceConnectionError(instanceID, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &DeviceConnectionError{InstanceID: instanceID, Message: message, Err: err}
}

func (e *DeviceConnectionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("device '%s' connection error: %s", e.InstanceID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *DeviceConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *DeviceConnectionError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"device_id": e.InstanceID}
}

// DeviceNotConnectedError reports a function call on a disconnected device.
type DeviceNotConnectedError struct {
	InstanceID string
}

// NewDeviceNotConnectedError constructs a DeviceNotConnectedError.
func NewDeviceNotConnectedError(instanceID string) error {
	return &DeviceNotConnectedError{InstanceID: instanceID}
}

func (e *DeviceNotConnectedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("device '%s' is not connected", e.InstanceID)
}

// Details returns the wire-form details map.
func (e *DeviceNotConnectedError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"device_id": e.InstanceID}
}

// DeviceFunctionError represents a failure inside a device function.
type DeviceFunctionError struct {
	InstanceID string
	FunctionID string
	Err        error
}

// NewDeviceFunctionError constructs a DeviceFunctionError.
func NewDeviceFunctionError(instanceID, functionID string, err error) error {
	return &DeviceFunctionError{InstanceID: instanceID, FunctionID: functionID, Err: err}
}

func (e *DeviceFunctionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("function '%s' on device '%s' failed: %v", e.FunctionID, e.InstanceID, e.Err)
}

// Unwrap exposes the root error.
func (e *DeviceFunctionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *DeviceFunctionError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"device_id": e.InstanceID, "function_id": e.FunctionID}
}

// PluginLoadError indicates a plugin could not be loaded or resolved.
type PluginLoadError struct {
	PluginID string
	Message  string
	Err      error
}

// NewPluginLoadError constructs a PluginLoadError.
func NewPluginLoadError(pluginID, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &PluginLoadError{PluginID: pluginID, Message: message, Err: err}
}

func (e *PluginLoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("plugin load error [%s]: %s", e.PluginID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *PluginLoadError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"plugin_id": e.PluginID}
}

// PluginConfigError indicates invalid or unreadable plugin metadata.
type PluginConfigError struct {
	PluginID string
	Message  string
	Err      error
}

// NewPluginConfigError constructs a PluginConfigError.
func NewPluginConfigError(pluginID, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &PluginConfigError{PluginID: pluginID, Message: message, Err: err}
}

func (e *PluginConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("plugin config error [%s]: %s", e.PluginID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *PluginConfigError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"plugin_id": e.PluginID}
}

// StorageError wraps a persistence failure for a resource.
type StorageError struct {
	Resource string
	ID       string
	Op       string
	Err      error
}

// NewStorageError constructs a StorageError.
func NewStorageError(resource, id, op string, err error) error {
	return &StorageError{Resource: resource, ID: id, Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("storage error: %s %s '%s': %v", e.Op, e.Resource, e.ID, e.Err)
}

// Unwrap exposes the underlying error.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the wire-form details map.
func (e *StorageError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{"resource_type": e.Resource, "resource_id": e.ID, "operation": e.Op}
}

// TypeName returns the bare type name of err's concrete value, without
// package qualifier or pointer marker. Error events carry it as their
// error_type field.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
