package governor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CacheKey builds a deterministic cache key from a tool name, an endpoint
// and optional query parameters. Parameter maps are serialized with sorted
// keys so semantically identical requests collide to the same entry
// regardless of the order the caller assembled them in. Strings pass
// through untouched.
func CacheKey(tool, endpoint string, params any) string {
	var b strings.Builder
	b.WriteString(tool)
	b.WriteByte(':')
	b.WriteString(endpoint)

	serialized := serializeParams(params)
	if serialized != "" {
		b.WriteByte(':')
		b.WriteString(serialized)
	}
	return b.String()
}

func serializeParams(params any) string {
	switch p := params.(type) {
	case nil:
		return ""
	case string:
		return p
	case map[string]string:
		if len(p) == 0 {
			return ""
		}
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+p[k])
		}
		return strings.Join(parts, "&")
	case map[string]any:
		if len(p) == 0 {
			return ""
		}
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			// json.Marshal sorts nested map keys, so the rendering is
			// stable for nested parameters too.
			v, err := json.Marshal(p[k])
			if err != nil {
				v = []byte(fmt.Sprintf("%v", p[k]))
			}
			parts = append(parts, k+"="+string(v))
		}
		return strings.Join(parts, "&")
	default:
		return fmt.Sprintf("%v", p)
	}
}
