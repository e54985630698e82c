package powersupply

import (
	"context"
	"fmt"

	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/device"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// Builder returns the catalog registration for this plugin.
func Builder() catalog.Builder {
	return catalog.Builder{
		Device: func(instanceID string, config map[string]any) device.Device {
			return New(instanceID, config)
		},
		Functions: map[string]device.FunctionFactory{
			"ConnectFunction":    NewConnectFunction,
			"DisconnectFunction": NewDisconnectFunction,
			"PowerOnFunction":    NewPowerOnFunction,
			"PowerOffFunction":   NewPowerOffFunction,
			"SetVoltageFunction": NewSetVoltageFunction,
			"SetCurrentFunction": NewSetCurrentFunction,
			"GetOutputFunction":  NewGetOutputFunction,
		},
	}
}

func supplyOf(d device.Device) (*Device, error) {
	psu, ok := d.(*Device)
	if !ok {
		return nil, fmt.Errorf("device %T is not a power supply", d)
	}
	return psu, nil
}

func connectedSupplyOf(d device.Device) (*Device, error) {
	psu, err := supplyOf(d)
	if err != nil {
		return nil, err
	}
	if !psu.IsConnected() {
		return nil, rferrors.NewDeviceNotConnectedError(psu.ID())
	}
	return psu, nil
}

type connectFunction struct{ dev device.Device }

// NewConnectFunction opens the link to the supply.
func NewConnectFunction(d device.Device) device.Function { return connectFunction{dev: d} }

func (f connectFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	psu, err := supplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	connErr := psu.Connect(ctx)
	return map[string]any{
		"complete":  connErr == nil,
		"connected": connErr == nil,
	}, connErr
}

type disconnectFunction struct{ dev device.Device }

// NewDisconnectFunction closes the link to the supply.
func NewDisconnectFunction(d device.Device) device.Function { return disconnectFunction{dev: d} }

func (f disconnectFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	psu, err := supplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	if err := psu.Disconnect(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"complete": true}, nil
}

type powerOnFunction struct{ dev device.Device }

// NewPowerOnFunction enables the output.
func NewPowerOnFunction(d device.Device) device.Function { return powerOnFunction{dev: d} }

func (f powerOnFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	psu, err := connectedSupplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	on, err := psu.PowerOn(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete":  true,
		"output_on": on,
	}, nil
}

type powerOffFunction struct{ dev device.Device }

// NewPowerOffFunction disables the output.
func NewPowerOffFunction(d device.Device) device.Function { return powerOffFunction{dev: d} }

func (f powerOffFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	psu, err := connectedSupplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	on, err := psu.PowerOff(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete":  true,
		"output_on": on,
	}, nil
}

type setVoltageFunction struct{ dev device.Device }

// NewSetVoltageFunction programs the output voltage.
func NewSetVoltageFunction(d device.Device) device.Function { return setVoltageFunction{dev: d} }

func (f setVoltageFunction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	schema := device.Schema{
		"voltage": {Type: "number", Required: true},
	}
	inputs, err := device.ValidateInputs(inputs, schema)
	if err != nil {
		return nil, err
	}

	psu, err := connectedSupplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	actual, err := psu.SetVoltage(ctx, device.Float(inputs["voltage"]))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete":       true,
		"actual_voltage": actual,
	}, nil
}

type setCurrentFunction struct{ dev device.Device }

// NewSetCurrentFunction programs the current limit.
func NewSetCurrentFunction(d device.Device) device.Function { return setCurrentFunction{dev: d} }

func (f setCurrentFunction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	schema := device.Schema{
		"current": {Type: "number", Required: true},
	}
	inputs, err := device.ValidateInputs(inputs, schema)
	if err != nil {
		return nil, err
	}

	psu, err := connectedSupplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	actual, err := psu.SetCurrent(ctx, device.Float(inputs["current"]))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete":       true,
		"actual_current": actual,
	}, nil
}

type getOutputFunction struct{ dev device.Device }

// NewGetOutputFunction reads the output state.
func NewGetOutputFunction(d device.Device) device.Function { return getOutputFunction{dev: d} }

func (f getOutputFunction) Execute(context.Context, map[string]any) (map[string]any, error) {
	psu, err := connectedSupplyOf(f.dev)
	if err != nil {
		return nil, err
	}
	out := psu.GetOutput()
	return map[string]any{
		"complete":  true,
		"voltage":   out.Voltage,
		"current":   out.Current,
		"output_on": out.On,
	}, nil
}
