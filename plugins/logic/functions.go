package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/device"
)

// Builder returns the catalog registration for this plugin.
func Builder() catalog.Builder {
	return catalog.Builder{
		Device: New,
		Functions: map[string]device.FunctionFactory{
			"DelayFunction":       NewDelayFunction,
			"BranchFunction":      NewBranchFunction,
			"PrintFunction":       NewPrintFunction,
			"SetVariableFunction": NewSetVariableFunction,
		},
	}
}

type delayFunction struct{}

// NewDelayFunction waits for duration_ms milliseconds.
func NewDelayFunction(device.Device) device.Function { return delayFunction{} }

func (delayFunction) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	ms := device.ConfigFloat(inputs, "duration_ms", 1000)
	if err := device.Sleep(ctx, time.Duration(ms*float64(time.Millisecond))); err != nil {
		return nil, err
	}
	return map[string]any{"complete": true}, nil
}

type branchFunction struct{}

// NewBranchFunction routes a trigger by a boolean condition. Both outputs
// are always present; exactly one is true.
func NewBranchFunction(device.Device) device.Function { return branchFunction{} }

func (branchFunction) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	condition := false
	if raw, ok := inputs["condition"]; ok {
		condition = looseBool(raw)
	}
	return map[string]any{"true": condition, "false": !condition}, nil
}

type printFunction struct{}

// NewPrintFunction writes a message to standard output.
func NewPrintFunction(device.Device) device.Function { return printFunction{} }

func (printFunction) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	message, ok := inputs["message"]
	if !ok {
		message = ""
	}
	fmt.Printf("[Pipeline Print] %v\n", message)
	return map[string]any{"complete": true}, nil
}

type setVariableFunction struct{}

// NewSetVariableFunction passes a value through to downstream nodes.
func NewSetVariableFunction(device.Device) device.Function { return setVariableFunction{} }

func (setVariableFunction) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	return map[string]any{"complete": true, "value": inputs["value"]}, nil
}

func looseBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(x) {
		case "false", "0", "no", "":
			return false
		}
		return true
	case int:
		return x != 0
	case float64:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}
