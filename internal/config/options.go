package config

import (
	"fmt"
	"time"
)

// Options is the free-form mapping passed to a capability factory
// (profile_options, job_options).
type Options map[string]any

// String returns the string at key, or "" when absent.
func (o Options) String(key string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q must be a string, got %T", key, v)
	}
	return s, nil
}

// Strings returns the list at key. A single string is accepted as a
// one-element list.
func (o Options) Strings(key string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %q item %d must be a string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %q must be a string or list, got %T", key, v)
	}
}

// Seconds returns the whole number of seconds at key as a duration, or def
// when absent.
func (o Options) Seconds(key string, def time.Duration) (time.Duration, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		n = int(x)
	default:
		return 0, fmt.Errorf("option %q must be a number of seconds, got %T", key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("option %q must be positive, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

// With returns a copy of o with key set to value.
func (o Options) With(key string, value any) Options {
	out := make(Options, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[key] = value
	return out
}

// Value returns the raw value at key.
func (o Options) Value(key string) any {
	return o[key]
}
