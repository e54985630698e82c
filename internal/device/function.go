package device

import (
	"context"
	"fmt"
	"reflect"
)

// Function is one operation on a device. A fresh instance is constructed for
// every call, so implementations may keep per-call state.
type Function interface {
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// FunctionFactory builds a function instance bound to a device.
type FunctionFactory func(d Device) Function

// InputSpec describes one schema entry for a function input. A non-nil
// Default is applied when the input is absent.
type InputSpec struct {
	Type     string
	Required bool
	Default  any
}

// Schema maps input names to their specs.
type Schema map[string]InputSpec

// ValidateInputs checks inputs against the schema and returns the
// effective inputs with defaults applied. Missing required inputs and
// type mismatches fail; unknown inputs pass through untouched. A nil
// inputs map is treated as empty.
func ValidateInputs(inputs map[string]any, schema Schema) (map[string]any, error) {
	if inputs == nil {
		inputs = make(map[string]any, len(schema))
	}
	for name, spec := range schema {
		value, present := inputs[name]

		if !present && spec.Required {
			return nil, fmt.Errorf("required input '%s' is missing", name)
		}

		if !present && spec.Default != nil {
			inputs[name] = spec.Default
			value, present = spec.Default, true
		}

		if present && spec.Type != "" && !typeMatches(value, spec.Type) {
			return nil, fmt.Errorf("input '%s' has invalid type: expected %s, got %T", name, spec.Type, value)
		}
	}
	return inputs, nil
}

func typeMatches(value any, expected string) bool {
	if expected == "any" {
		return true
	}
	if value == nil {
		return false
	}

	switch expected {
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean", "trigger":
		_, ok := value.(bool)
		return ok
	case "array":
		k := reflect.TypeOf(value).Kind()
		return k == reflect.Slice || k == reflect.Array
	case "object":
		return reflect.TypeOf(value).Kind() == reflect.Map
	default:
		// Unknown schema types are treated as valid.
		return true
	}
}
