package expressions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Render resolves ${{ path }} placeholders in a text template against vars.
// Paths are dot-delimited (e.g. "context.customerData.firstName"); a direct key
// lookup is tried before splitting, so keys containing dots still resolve.
// Unknown paths are validation errors listing the available fields.
func Render(template string, vars map[string]any) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	i := 0
	for i < len(template) {
		idx := strings.Index(template[i:], "${{")
		if idx == -1 {
			out.WriteString(template[i:])
			break
		}
		out.WriteString(template[i : i+idx])
		start := i + idx + 3

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			return "", schema.NewError(schema.ErrCodeValidation, "unclosed ${{ placeholder")
		}
		end += start

		path := strings.TrimSpace(template[start:end])
		if path == "" {
			return "", schema.NewError(schema.ErrCodeValidation, "empty placeholder ${{ }}")
		}
		if strings.Contains(path, "${{") {
			return "", schema.NewError(schema.ErrCodeValidation, "nested placeholders are not allowed")
		}

		val, err := lookupPath(vars, path)
		if err != nil {
			return "", err
		}
		out.WriteString(stringify(val))
		i = end + 2
	}

	return out.String(), nil
}

// HasPlaceholders reports whether s contains a ${{ marker.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, "${{")
}

func lookupPath(root map[string]any, path string) (any, error) {
	if v, ok := root[path]; ok {
		return v, nil
	}

	var current any = root
	for i, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"empty segment in %q at position %d", path, i)
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"cannot traverse into non-object at %q in %q (type: %T)", seg, path, current)
		}
		val, ok := m[seg]
		if !ok {
			available := sortedKeys(m)
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"field %q not found in %q; available: [%s]", seg, path, strings.Join(available, ", ")).
				WithDetails(map[string]any{"path": path, "available_fields": available})
		}
		current = val
	}
	return current, nil
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
