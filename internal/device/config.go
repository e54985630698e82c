package device

// Config values arrive from JSON or YAML, so numbers may be decoded as
// float64, int or int64 depending on the source. These helpers coerce an
// entry to the wanted type, falling back when the key is absent or has an
// incompatible type.

// ConfigString reads a string entry from a device config.
func ConfigString(config map[string]any, key, fallback string) string {
	if s, ok := config[key].(string); ok {
		return s
	}
	return fallback
}

// ConfigFloat reads a numeric entry from a device config.
func ConfigFloat(config map[string]any, key string, fallback float64) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// ConfigInt reads an integer entry from a device config.
func ConfigInt(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return fallback
	}
}

// ConfigBool reads a boolean entry from a device config.
func ConfigBool(config map[string]any, key string, fallback bool) bool {
	if b, ok := config[key].(bool); ok {
		return b
	}
	return fallback
}

// Float coerces a validated numeric input to float64. Non-numeric values
// coerce to zero; callers are expected to have run ValidateInputs first.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return 0
	}
}
