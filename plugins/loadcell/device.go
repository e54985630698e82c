// Package loadcell simulates a loadcell indicator. Readings are generated
// around a fixed nominal load with noise, so taring, averaging and
// pass/fail evaluation behave like a bench instrument.
package loadcell

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rigflow/rigflow/internal/device"
)

// DeviceClass is the class name declared in config.yaml.
const DeviceClass = "LoadcellDevice"

const nominalLoad = 50.0

// Reading is one measurement from the indicator.
type Reading struct {
	Value  float64
	Unit   string
	Stable bool
}

// Evaluation is the outcome of checking a value against spec limits.
type Evaluation struct {
	Pass    bool
	Result  string
	Value   float64
	SpecMin float64
	SpecMax float64
}

// Device is a simulated loadcell indicator.
type Device struct {
	*device.Base

	port          string
	baudrate      int
	unit          string
	decimalPlaces int

	mu         sync.Mutex
	tareOffset float64
	value      float64
	stable     bool
}

// New creates a loadcell instance from its configuration.
func New(instanceID string, config map[string]any) *Device {
	return &Device{
		Base:          device.NewBase(instanceID, config),
		port:          device.ConfigString(config, "port", "COM2"),
		baudrate:      device.ConfigInt(config, "baudrate", 9600),
		unit:          device.ConfigString(config, "unit", "g"),
		decimalPlaces: device.ConfigInt(config, "decimal_places", 2),
		stable:        true,
	}
}

// Connect simulates opening the serial link to the indicator.
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

// HealthCheck reports whether the indicator link is up.
func (d *Device) HealthCheck(context.Context) bool {
	return d.IsConnected()
}

// Info describes the indicator and its measurement state.
func (d *Device) Info() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]any{
		"id":     d.ID(),
		"type":   "loadcell",
		"status": string(d.Status()),
		"config": map[string]any{
			"port":           d.port,
			"baudrate":       d.baudrate,
			"unit":           d.unit,
			"decimal_places": d.decimalPlaces,
		},
		"state": map[string]any{
			"value":       d.value,
			"tare_offset": d.tareOffset,
			"stable":      d.stable,
		},
	}
}

// Tare zeroes the indicator at the current load.
func (d *Device) Tare(ctx context.Context) error {
	if err := device.Sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tareOffset = d.value
	return nil
}

// GetValue takes a single reading.
func (d *Device) GetValue(ctx context.Context) (Reading, error) {
	if err := device.Sleep(ctx, 20*time.Millisecond); err != nil {
		return Reading{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	raw := nominalLoad + (rand.Float64()*4 - 2)
	d.value = d.round(raw - d.tareOffset)
	d.stable = rand.Float64() > 0.1
	return Reading{Value: d.value, Unit: d.unit, Stable: d.stable}, nil
}

// GetAverage takes several readings and returns their mean. Stability is
// judged by the sample variance.
func (d *Device) GetAverage(ctx context.Context, samples int) (Reading, error) {
	if samples < 1 {
		samples = 1
	}

	values := make([]float64, 0, samples)
	for i := 0; i < samples; i++ {
		if err := device.Sleep(ctx, 20*time.Millisecond); err != nil {
			return Reading{}, err
		}
		d.mu.Lock()
		raw := nominalLoad + (rand.Float64()*4 - 2)
		values = append(values, raw-d.tareOffset)
		d.mu.Unlock()
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = d.round(avg)
	d.stable = variance < 0.5
	return Reading{Value: d.value, Unit: d.unit, Stable: d.stable}, nil
}

// Evaluate checks a value against inclusive spec limits.
func (d *Device) Evaluate(value, specMin, specMax float64) Evaluation {
	pass := specMin <= value && value <= specMax
	result := "FAIL"
	if pass {
		result = "PASS"
	}
	return Evaluation{
		Pass:    pass,
		Result:  result,
		Value:   value,
		SpecMin: specMin,
		SpecMax: specMax,
	}
}

func (d *Device) round(v float64) float64 {
	p := math.Pow10(d.decimalPlaces)
	return math.Round(v*p) / p
}
