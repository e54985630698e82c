// Package powersupply simulates a bench power supply with voltage and
// current limit programming. Readback values carry a little noise when
// the output is on, like a real instrument.
package powersupply

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rigflow/rigflow/internal/device"
)

// DeviceClass is the class name declared in config.yaml.
const DeviceClass = "PowerSupplyDevice"

// Output is the state of the supply output.
type Output struct {
	Voltage float64
	Current float64
	On      bool
}

// Device is a simulated bench power supply.
type Device struct {
	*device.Base

	port       string
	baudrate   int
	maxVoltage float64
	maxCurrent float64

	mu         sync.Mutex
	outputOn   bool
	setVoltage float64
	setCurrent float64
	actVoltage float64
	actCurrent float64
}

// New creates a power supply instance from its configuration.
func New(instanceID string, config map[string]any) *Device {
	return &Device{
		Base:       device.NewBase(instanceID, config),
		port:       device.ConfigString(config, "port", "COM1"),
		baudrate:   device.ConfigInt(config, "baudrate", 9600),
		maxVoltage: device.ConfigFloat(config, "max_voltage", 30),
		maxCurrent: device.ConfigFloat(config, "max_current", 5),
	}
}

// Connect simulates opening the serial link to the supply.
func (d *Device) Connect(ctx context.Context) error {
	d.SetStatus(device.StatusConnecting)
	if err := device.Sleep(ctx, 100*time.Millisecond); err != nil {
		d.SetError(err.Error())
		return err
	}
	d.SetStatus(device.StatusConnected)
	return nil
}

// Disconnect closes the simulated serial link.
func (d *Device) Disconnect(context.Context) error {
	d.SetStatus(device.StatusDisconnected)
	return nil
}

// HealthCheck reports whether the supply link is up.
func (d *Device) HealthCheck(context.Context) bool {
	return d.IsConnected()
}

// Info describes the supply and its output state.
func (d *Device) Info() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]any{
		"id":     d.ID(),
		"type":   "power_supply",
		"status": string(d.Status()),
		"config": map[string]any{
			"port":        d.port,
			"baudrate":    d.baudrate,
			"max_voltage": d.maxVoltage,
			"max_current": d.maxCurrent,
		},
		"state": map[string]any{
			"output_on": d.outputOn,
			"voltage":   d.actVoltage,
			"current":   d.actCurrent,
		},
	}
}

// PowerOn enables the output.
func (d *Device) PowerOn(ctx context.Context) (bool, error) {
	if err := device.Sleep(ctx, 50*time.Millisecond); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputOn = true
	d.actVoltage = d.setVoltage + (rand.Float64()*0.04 - 0.02)
	d.actCurrent = 0.01 + rand.Float64()*0.09
	return d.outputOn, nil
}

// PowerOff disables the output.
func (d *Device) PowerOff(ctx context.Context) (bool, error) {
	if err := device.Sleep(ctx, 50*time.Millisecond); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputOn = false
	d.actVoltage = 0
	d.actCurrent = 0
	return d.outputOn, nil
}

// SetVoltage programs the output voltage and returns the readback.
func (d *Device) SetVoltage(ctx context.Context, voltage float64) (float64, error) {
	if voltage < 0 || voltage > d.maxVoltage {
		return 0, fmt.Errorf("voltage %g out of range [0, %g]", voltage, d.maxVoltage)
	}
	if err := device.Sleep(ctx, 50*time.Millisecond); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setVoltage = voltage
	if d.outputOn {
		d.actVoltage = voltage + (rand.Float64()*0.04 - 0.02)
	}
	return round3(d.actVoltage), nil
}

// SetCurrent programs the current limit and returns the readback.
func (d *Device) SetCurrent(ctx context.Context, current float64) (float64, error) {
	if current < 0 || current > d.maxCurrent {
		return 0, fmt.Errorf("current %g out of range [0, %g]", current, d.maxCurrent)
	}
	if err := device.Sleep(ctx, 50*time.Millisecond); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCurrent = current
	return round3(d.setCurrent), nil
}

// GetOutput returns the current output state.
func (d *Device) GetOutput() Output {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Output{
		Voltage: round3(d.actVoltage),
		Current: round3(d.actCurrent),
		On:      d.outputOn,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
