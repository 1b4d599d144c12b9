package channel

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Typed accessors over loosely-typed platform payloads. All fallback-chain
// logic in the transformers goes through these so missing/null handling stays
// in one place. A missing key, a nil value, and a value of the wrong shape
// all degrade to the zero answer; accessors never panic.

// ReadString returns the first non-empty string value among keys. Non-string
// scalars are rendered through their JSON form.
func ReadString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case bool:
			return strconv.FormatBool(v)
		default:
			if encoded, err := json.Marshal(v); err == nil {
				return strings.Trim(string(encoded), "\"")
			}
		}
	}
	return ""
}

// ReadBool returns the boolean value under the first matching key, or false.
// String forms ("true"/"false") decode too, since bridge payloads are loose
// about scalar types.
func ReadBool(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if parsed, err := strconv.ParseBool(v); err == nil {
				return parsed
			}
		}
	}
	return false
}

// ReadInt returns the integer value under the first matching key. ok is false
// when no key holds a usable number; callers that need null-vs-zero semantics
// check ok.
func ReadInt(raw map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		value, exists := raw[key]
		if !exists || value == nil {
			continue
		}
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		case json.Number:
			if parsed, err := v.Int64(); err == nil {
				return int(parsed), true
			}
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

// DecodeMap unmarshals a JSON object payload into a map, returning an empty
// map for empty input.
func DecodeMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
