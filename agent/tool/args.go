package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

// intArg accepts JSON numbers, integral floats and numeric strings within the
// int32 range.
func intArg(args map[string]any, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	wholeErr := fmt.Errorf("%s must be a whole number", key)
	switch v := raw.(type) {
	case int:
		return boundedInt(int64(v), wholeErr)
	case int64:
		return boundedInt(v, wholeErr)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, wholeErr
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, wholeErr
		}
		return boundedInt(n, wholeErr)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return 0, wholeErr
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

func boundedInt(n int64, outOfRange error) (int, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, outOfRange
	}
	return int(n), nil
}
