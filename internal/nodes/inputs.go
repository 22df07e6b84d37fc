package nodes

import "fmt"

// Typed accessors for resolved input maps. The engine coerces values per
// port type before invocation, so these mostly guard against capability
// bugs and hand-built input maps in tests.

func stringInput(inputs map[string]any, name string) (string, error) {
	v, ok := inputs[name]
	if !ok {
		return "", fmt.Errorf("input %q is required", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("input %q must be a non-empty string", name)
	}
	return s, nil
}

func optionalString(inputs map[string]any, name, fallback string) string {
	if v, ok := inputs[name]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func numberInput(inputs map[string]any, name string, fallback float64) float64 {
	v, ok := inputs[name]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

func boolInput(inputs map[string]any, name string, fallback bool) bool {
	if v, ok := inputs[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func pathListInput(inputs map[string]any, name string) ([]string, error) {
	v, ok := inputs[name]
	if !ok {
		return nil, fmt.Errorf("input %q is required", name)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("input %q must contain only strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("input %q must be a path list", name)
}

// toAnyList converts a string slice to the []any shape used on path_list
// output ports.
func toAnyList(paths []string) []any {
	out := make([]any, len(paths))
	for i, p := range paths {
		out[i] = p
	}
	return out
}
