package config

import (
	"time"
)

// Config provides typed access to configuration values stored in a
// map[string]any. All accessors take a default that is returned when the
// key is missing or the stored value has the wrong type.
type Config struct {
	data map[string]any
}

// New creates a Config from a map. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if the key is
// missing or not a string.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

// Duration returns the duration value for key, or defaultVal if the key
// is missing or cannot be interpreted as a duration.
//
// Accepted forms:
//   - string parsed by time.ParseDuration ("3s", "1h30m")
//   - int, int64, or float64 interpreted as seconds
//   - time.Duration used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}

	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return defaultVal
		}
		return d
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	case time.Duration:
		return val
	default:
		return defaultVal
	}
}

// Bool returns the bool value for key, or defaultVal if the key is missing
// or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// Int returns the int value for key, or defaultVal if the key is missing
// or not an integer. float64 values with no fractional part are accepted
// since JSON decodes all numbers as float64.
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}

	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
		return defaultVal
	default:
		return defaultVal
	}
}

// Float returns the float64 value for key, or defaultVal if the key is
// missing or not numeric.
func (c Config) Float(key string, defaultVal float64) float64 {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}

	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return defaultVal
	}
}

// StringSlice returns the []string value for key, or defaultVal if the
// key is missing or not a slice of strings. []any values are converted
// element-wise; any non-string element rejects the whole slice.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}

	switch val := v.(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	default:
		return defaultVal
	}
}

// Map returns the nested map value for key, or defaultVal if the key is
// missing or not a map.
func (c Config) Map(key string, defaultVal map[string]any) map[string]any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	m, ok := v.(map[string]any)
	if !ok {
		return defaultVal
	}
	return m
}

// Sub returns the nested map under key wrapped as a Config. Missing or
// mistyped keys yield an empty Config, so chained lookups stay safe.
func (c Config) Sub(key string) Config {
	return New(c.Map(key, nil))
}

// Any returns the raw value for key, or defaultVal if the key is missing.
func (c Config) Any(key string, defaultVal any) any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}
