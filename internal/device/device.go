// Package device defines the contracts implemented by hardware plugins: the
// device lifecycle, the per-call function objects, and input schemas.
package device

import (
	"context"
	"sync"
	"time"
)

// Status is the connection state of a device instance.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Device is one addressable hardware (or simulated) instance.
type Device interface {
	ID() string
	Config() map[string]any
	Status() Status
	LastError() string
	IsConnected() bool
	SetStatus(Status)
	SetError(message string)
	ClearError()

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	HealthCheck(ctx context.Context) bool
	Info() map[string]any
}

// Base carries the shared state of a device instance. Plugin devices embed
// *Base and implement the lifecycle methods.
type Base struct {
	instanceID string
	config     map[string]any

	mu      sync.Mutex
	status  Status
	lastErr string
}

// NewBase constructs the shared device state.
func NewBase(instanceID string, config map[string]any) *Base {
	if config == nil {
		config = map[string]any{}
	}
	return &Base{
		instanceID: instanceID,
		config:     config,
		status:     StatusDisconnected,
	}
}

// ID returns the instance id.
func (b *Base) ID() string { return b.instanceID }

// Config returns the instance configuration.
func (b *Base) Config() map[string]any { return b.config }

// Status returns the current connection state.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SetStatus moves the device to the given state.
func (b *Base) SetStatus(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
	if s != StatusError {
		b.lastErr = ""
	}
}

// SetError moves the device to the error state and records the message.
func (b *Base) SetError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = StatusError
	b.lastErr = message
}

// ClearError leaves the error state back to disconnected.
func (b *Base) ClearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == StatusError {
		b.status = StatusDisconnected
		b.lastErr = ""
	}
}

// IsConnected reports whether the device is connected.
func (b *Base) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status == StatusConnected
}

// LastError returns the recorded error message, if any.
func (b *Base) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// BaseInfo returns the state fields common to every device Info map.
func (b *Base) BaseInfo() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]any{
		"instance_id": b.instanceID,
		"status":      string(b.status),
		"error":       b.lastErr,
		"config":      b.config,
	}
}

// Sleep waits for the duration or until the context is cancelled, whichever
// comes first. Simulated devices use it so pipeline cancellation reaches
// in-flight functions.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
