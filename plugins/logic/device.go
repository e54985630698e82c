// Package logic provides the virtual device behind the flow-control
// function palette. The engine executes these functions through its own
// builtin table; this package makes them visible in the plugin catalog and
// runnable through the direct execution path.
package logic

import (
	"context"

	"github.com/rigflow/rigflow/internal/device"
)

// DeviceClass is the builder key declared in config.yaml.
const DeviceClass = "LogicDevice"

// Device is a virtual device with no hardware behind it. Connecting always
// succeeds immediately.
type Device struct {
	*device.Base
}

// New builds a logic device instance.
func New(instanceID string, config map[string]any) device.Device {
	return &Device{Base: device.NewBase(instanceID, config)}
}

func (d *Device) Connect(context.Context) error {
	d.SetStatus(device.StatusConnected)
	return nil
}

func (d *Device) Disconnect(context.Context) error {
	d.SetStatus(device.StatusDisconnected)
	return nil
}

func (d *Device) HealthCheck(context.Context) bool { return true }

func (d *Device) Info() map[string]any {
	info := d.BaseInfo()
	info["type"] = "logic"
	return info
}
