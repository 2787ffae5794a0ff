package message

import (
	"encoding/json"
)

func copyMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case nil, bool, string, float64, int, int64, json.Number:
		return t
	default:
		return normalize(t)
	}
}

// normalize converts v into the JSON document model (maps, slices, scalars).
// Values that are already in that model are deep-copied; anything else goes
// through a JSON round trip.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, bool, string, float64, int, int64, json.Number:
		return t
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case map[string]interface{}, []interface{}:
		return copyValue(t)
	case *Message:
		return copyMap(t.doc)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
