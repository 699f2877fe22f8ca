// Package flags converts user-configured compose flag maps into CLI
// arguments appended to compose invocations.
package flags

import (
	"errors"
	"fmt"
	"sort"
)

// Flags represents extra compose flags as a key-value map. Values can be:
//   - string: generates --key=value
//   - bool: true generates --key, false omits the flag
//   - []string: generates --key=v for each element
type Flags map[string]any

// ErrInvalidFlagValue is returned when a flag value has an unsupported type.
var ErrInvalidFlagValue = errors.New("invalid flag value type")

// FromConfig validates and normalizes raw config values into Flags.
// Accepts string, bool, []string, and []any (the shape YAML parsing yields).
func FromConfig(cfg map[string]any) (Flags, error) {
	if cfg == nil {
		return make(Flags), nil
	}

	result := make(Flags, len(cfg))
	for k, v := range cfg {
		switch val := v.(type) {
		case string, bool, []string:
			result[k] = val
		case []any:
			strs := make([]string, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s array contains non-string value %T", ErrInvalidFlagValue, k, item)
				}
				strs = append(strs, s)
			}
			result[k] = strs
		default:
			return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidFlagValue, k, v)
		}
	}
	return result, nil
}

// Merge combines two Flags maps, with override taking precedence.
func Merge(base, override Flags) Flags {
	result := make(Flags, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}

// ToArgs reconstructs Flags into CLI arguments, sorted by key so compose
// invocations stay deterministic.
func ToArgs(f Flags) []string {
	if len(f) == 0 {
		return nil
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		switch val := f[k].(type) {
		case string:
			args = append(args, fmt.Sprintf("--%s=%s", k, val))
		case bool:
			if val {
				args = append(args, "--"+k)
			}
		case []string:
			for _, s := range val {
				args = append(args, fmt.Sprintf("--%s=%s", k, s))
			}
		}
	}
	return args
}
