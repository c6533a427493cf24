package extract

import (
	"encoding/json"
	"strings"
)

// JSONObject locates a JSON object in text. It tries, in order, fenced
// blocks tagged json, the widest span from the first '{' to the last '}',
// and balanced objects from left to right. It returns false when none parses.
func JSONObject(text string) (map[string]json.RawMessage, bool) {
	return findObject(text, func(map[string]json.RawMessage) bool { return true })
}

// ObjectWithKey is JSONObject restricted to objects that carry key. A
// candidate without the key does not stop the search; later tiers are
// still tried.
func ObjectWithKey(text, key string) (map[string]json.RawMessage, bool) {
	return findObject(text, func(obj map[string]json.RawMessage) bool {
		_, ok := obj[key]
		return ok
	})
}

func findObject(text string, accept func(map[string]json.RawMessage) bool) (map[string]json.RawMessage, bool) {
	for _, f := range Fences(text) {
		if f.Tag != "json" {
			continue
		}
		if obj, ok := decodeObject(f.Body); ok && accept(obj) {
			return obj, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	if obj, ok := decodeObject(text[start : end+1]); ok && accept(obj) {
		return obj, true
	}

	for off := start; off < len(text); {
		from, to, ok := balancedObject(text[off:])
		if !ok {
			break
		}
		if obj, ok := decodeObject(text[off+from : off+to]); ok && accept(obj) {
			return obj, true
		}
		off += to
	}
	return nil, false
}

// Spec resolves a specification from thinker output: the "spec" field of
// the first JSON object that has one, else the text without fence markers.
// Non-string spec values are returned as compact JSON.
func Spec(text string) string {
	if obj, ok := ObjectWithKey(text, "spec"); ok {
		if s, ok := StringField(obj["spec"]); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return StripFences(text)
}

// StringField decodes raw as a string. Values of any other JSON type are
// returned in their compact encoding; null yields false.
func StringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(compact), true
}

func decodeObject(s string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedObject finds the first complete {...} object in text, honouring
// string literals and escapes, and returns its byte range [from, to).
func balancedObject(text string) (from, to int, ok bool) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}
