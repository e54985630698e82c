// Package mockservo simulates a single-axis servo motor. It is the
// reference device plugin: homing, absolute moves with a capped travel
// time, and position readback, all without hardware attached.
package mockservo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rigflow/rigflow/internal/device"
)

// DeviceClass is the class name declared in config.yaml.
const DeviceClass = "MockServoDevice"

// Device is a simulated servo axis.
type Device struct {
	*device.Base

	axis        int
	maxPosition float64

	mu       sync.Mutex
	position float64
	velocity float64
	homed    bool
}

// New creates a servo instance from its configuration.
func New(instanceID string, config map[string]any) *Device {
	return &Device{
		Base:        device.NewBase(instanceID, config),
		axis:        device.ConfigInt(config, "axis", 0),
		maxPosition: device.ConfigFloat(config, "max_position", 1000),
	}
}

// Connect simulates establishing a link to the servo controller.
func (d *Device) Connect(ctx context.Context) error {
	d.SetStatus(device.StatusConnecting)
	if err := device.Sleep(ctx, 50*time.Millisecond); err != nil {
		d.SetError(err.Error())
		return err
	}
	d.SetStatus(device.StatusConnected)
	return nil
}

// Disconnect drops the simulated link.
func (d *Device) Disconnect(context.Context) error {
	d.SetStatus(device.StatusDisconnected)
	return nil
}

// HealthCheck reports whether the servo link is up.
func (d *Device) HealthCheck(context.Context) bool {
	return d.IsConnected()
}

// Info describes the servo and its motion state.
func (d *Device) Info() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]any{
		"id":     d.ID(),
		"type":   "mock_servo",
		"status": string(d.Status()),
		"config": map[string]any{
			"axis":         d.axis,
			"max_position": d.maxPosition,
		},
		"state": map[string]any{
			"position": d.position,
			"velocity": d.velocity,
			"homed":    d.homed,
		},
	}
}

// HomeAxis drives the axis to its reference position.
func (d *Device) HomeAxis(ctx context.Context) (float64, error) {
	if err := device.Sleep(ctx, 100*time.Millisecond); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = 0
	d.velocity = 0
	d.homed = true
	return d.position, nil
}

// MoveTo moves the axis to an absolute position. Travel time is
// distance/speed, capped at 200ms so simulations stay fast.
func (d *Device) MoveTo(ctx context.Context, position, speed float64) (float64, error) {
	if position < 0 || position > d.maxPosition {
		return 0, fmt.Errorf("position %g out of range [0, %g]", position, d.maxPosition)
	}

	d.mu.Lock()
	distance := math.Abs(position - d.position)
	d.mu.Unlock()

	travel := 100 * time.Millisecond
	if speed > 0 {
		travel = time.Duration(distance / speed * float64(time.Second))
	}
	if travel > 200*time.Millisecond {
		travel = 200 * time.Millisecond
	}
	if err := device.Sleep(ctx, travel); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = position
	d.velocity = 0
	return d.position, nil
}

// ReadPosition returns the current position and velocity.
func (d *Device) ReadPosition() (position, velocity float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position, d.velocity
}
