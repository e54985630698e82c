package mockservo

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
			"HomeFunction":        NewHomeFunction,
			"MoveFunction":        NewMoveFunction,
			"GetPositionFunction": NewGetPositionFunction,
		},
	}
}

func servoOf(d device.Device) (*Device, error) {
	servo, ok := d.(*Device)
	if !ok {
		return nil, fmt.Errorf("device %T is not a mock servo", d)
	}
	if !servo.IsConnected() {
		return nil, rferrors.NewDeviceNotConnectedError(servo.ID())
	}
	return servo, nil
}

type homeFunction struct{ dev device.Device }

// NewHomeFunction homes the servo axis.
func NewHomeFunction(d device.Device) device.Function { return homeFunction{dev: d} }

func (f homeFunction) Execute(ctx context.Context, _ map[string]any) (map[string]any, error) {
	servo, err := servoOf(f.dev)
	if err != nil {
		return nil, err
	}
	position, err := servo.HomeAxis(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete": true,
		"position": position,
	}, nil
}

type moveFunction struct{ dev device.Device }

// NewMoveFunction moves the servo to an absolute position.
func NewMoveFunction(d device.Device) device.Function { return moveFunction{dev: d} }

func (f moveFunction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	schema := device.Schema{
		"position": {Type: "number", Required: true},
		"speed":    {Type: "number", Default: 100.0},
	}
	inputs, err := device.ValidateInputs(inputs, schema)
	if err != nil {
		return nil, err
	}

	servo, err := servoOf(f.dev)
	if err != nil {
		return nil, err
	}
	position, err := servo.MoveTo(ctx, device.Float(inputs["position"]), device.Float(inputs["speed"]))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"complete": true,
		"position": position,
	}, nil
}

type getPositionFunction struct{ dev device.Device }

// NewGetPositionFunction reads the current position and velocity.
func NewGetPositionFunction(d device.Device) device.Function {
	return getPositionFunction{dev: d}
}

func (f getPositionFunction) Execute(context.Context, map[string]any) (map[string]any, error) {
	servo, err := servoOf(f.dev)
	if err != nil {
		return nil, err
	}
	position, velocity := servo.ReadPosition()
	return map[string]any{
		"position": position,
		"velocity": velocity,
	}, nil
}
