package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rigflow/rigflow/internal/device"
)

// Built-in function ids of the logic plugin. The engine executes these
// directly instead of going through the plugin catalog.
const (
	builtinDelay       = "delay"
	builtinBranch      = "branch"
	builtinPrint       = "print"
	builtinSetVariable = "set_variable"
)

func (e *Engine) runBuiltin(ctx context.Context, functionID string, inputs map[string]any) (map[string]any, error) {
	switch functionID {
	case builtinDelay:
		ms := device.ConfigFloat(inputs, "duration_ms", 1000)
		if err := device.Sleep(ctx, time.Duration(ms*float64(time.Millisecond))); err != nil {
			return nil, err
		}
		return map[string]any{"complete": true}, nil

	case builtinBranch:
		condition := false
		if raw, ok := inputs["condition"]; ok {
			condition = truthy(raw)
		}
		return map[string]any{"true": condition, "false": !condition}, nil

	case builtinPrint:
		message, ok := inputs["message"]
		if !ok {
			message = ""
		}
		fmt.Printf("[Pipeline Print] %v\n", message)
		e.log.Infof("[Pipeline Print] %v", message)
		return map[string]any{"complete": true}, nil

	case builtinSetVariable:
		return map[string]any{"complete": true, "value": inputs["value"]}, nil

	default:
		e.log.Warnf("unknown logic function '%s'", functionID)
		return map[string]any{"complete": true}, nil
	}
}

// truthy applies the loose boolean coercion used for branch and while
// conditions. Strings are false only when "false", "0", "no" or empty;
// empty collections are false; unknown types are true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
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
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float32:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// coerceInt converts loop counts arriving as JSON numbers or strings.
// Fractional strings and unconvertible values fall back.
func coerceInt(v any, fallback int) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float32:
		return int(x)
	case float64:
		return int(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
		return fallback
	default:
		return fallback
	}
}
