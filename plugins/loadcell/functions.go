package loadcell

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
			"TareFunction":       NewTareFunction,
			"GetValueFunction":   NewGetValueFunction,
			"GetAverageFunction": NewGetAverageFunction,
			"EvaluateFunction":   NewEvaluateFunction,
		},
	}
}

func cellOf(d device.Device) (*Device, error) {
	cell, ok := d.(*Device)
	if !ok {
		return nil, fmt.Errorf("device %T is not a loadcell", d)
	}
	return cell, nil
}

func connectedCellOf(d device.Device) (*Device, error) {
	cell, err := cellOf(d)
	if err != nil {
		return nil, err
	}
	if !cell.IsConnected() {
		return nil, rferrors.NewDeviceNotConnectedError(cell.ID())
	}
	return cell, nil
}

type connectFunction struct{ dev device.Device }

// NewConnectFunction opens the link to the indicator.
func NewConnectFunction(d device.Device) device.Function { return connectFunction{dev: d} }

func (f connectFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	cell, err := cellOf(f.dev)
	if err != nil {
		return nil, err
	}
	connErr := cell.Connect(ctx)
	return map[string]any{
		"complete":  connErr == nil,
		"connected": connErr == nil,
	}, connErr
}

type disconnectFunction struct{ dev device.Device }

// NewDisconnectFunction closes the link to the indicator.
func NewDisconnectFunction(d device.Device) device.Function { return disconnectFunction{dev: d} }

func (f disconnectFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	cell, err := cellOf(f.dev)
	if err != nil {
		return nil, err
	}
	if err := cell.Disconnect(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"complete": true}, nil
}

type tareFunction struct{ dev device.Device }

// NewTareFunction zeroes the indicator.
func NewTareFunction(d device.Device) device.Function { return tareFunction{dev: d} }

func (f tareFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	cell, err := connectedCellOf(f.dev)
	if err != nil {
		return nil, err
	}
	if err := cell.Tare(ctx); err != nil {
		return nil, err
	}
	return map[string]any{
		"complete": true,
		"success":  true,
	}, nil
}

type getValueFunction struct{ dev device.Device }

// NewGetValueFunction takes a single reading.
func NewGetValueFunction(d device.Device) device.Function { return getValueFunction{dev: d} }

func (f getValueFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	cell, err := connectedCellOf(f.dev)
	if err != nil {
		return nil, err
	}
	reading, err := cell.GetValue(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete": true,
		"value":    reading.Value,
		"unit":     reading.Unit,
		"stable":   reading.Stable,
	}, nil
}

type getAverageFunction struct{ dev device.Device }

// NewGetAverageFunction takes an averaged reading.
func NewGetAverageFunction(d device.Device) device.Function { return getAverageFunction{dev: d} }

func (f getAverageFunction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	schema := device.Schema{
		"samples": {Type: "number", Default: 5},
	}
	inputs, err := device.ValidateInputs(inputs, schema)
	if err != nil {
		return nil, err
	}

	cell, err := connectedCellOf(f.dev)
	if err != nil {
		return nil, err
	}
	reading, err := cell.GetAverage(ctx, int(device.Float(inputs["samples"])))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete": true,
		"value":    reading.Value,
		"unit":     reading.Unit,
		"stable":   reading.Stable,
	}, nil
}

type evaluateFunction struct{ dev device.Device }

// NewEvaluateFunction checks a value against spec limits.
func NewEvaluateFunction(d device.Device) device.Function { return evaluateFunction{dev: d} }

func (f evaluateFunction) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	schema := device.Schema{
		"value":    {Type: "number", Required: true},
		"spec_min": {Type: "number", Required: true},
		"spec_max": {Type: "number", Required: true},
	}
	inputs, err := device.ValidateInputs(inputs, schema)
	if err != nil {
		return nil, err
	}

	cell, err := connectedCellOf(f.dev)
	if err != nil {
		return nil, err
	}
	eval := cell.Evaluate(
		device.Float(inputs["value"]),
		device.Float(inputs["spec_min"]),
		device.Float(inputs["spec_max"]),
	)
	return map[string]any{
		"pass":   eval.Pass,
		"fail":   !eval.Pass,
		"result": eval.Result,
		"value":  eval.Value,
	}, nil
}
