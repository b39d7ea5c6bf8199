package deepseek

import (
	"encoding/json"
	"strings"
)

// ParseJSONObject extracts a JSON object from model output. Strict parse
// first; if the object is wrapped in prose, the first balanced {...}
// substring is tried instead. Failures yield an empty map, never an error:
// callers treat an unparseable answer like an empty one.
func ParseJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}
	}

	if obj := tryObject(text); obj != nil {
		return obj
	}
	if sub := balancedSubstring(text, '{', '}'); sub != "" {
		if obj := tryObject(sub); obj != nil {
			return obj
		}
	}
	return map[string]any{}
}

// ParseJSONList extracts a JSON array of strings from model output, with
// the same prose-wrapped fallback as ParseJSONObject. Non-string elements
// are stringified via their JSON form; blanks are dropped.
func ParseJSONList(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if items := tryList(text); items != nil {
		return items
	}
	if sub := balancedSubstring(text, '[', ']'); sub != "" {
		if items := tryList(sub); items != nil {
			return items
		}
	}
	return nil
}

func tryObject(text string) map[string]any {
	var value map[string]any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil
	}
	return value
}

func tryList(text string) []string {
	var raw []any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, v := range raw {
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			s = strings.TrimSpace(string(b))
		}
		if s != "" {
			items = append(items, s)
		}
	}
	return items
}

// balancedSubstring returns the first balanced open..close span in text,
// skipping brackets inside JSON string literals.
func balancedSubstring(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
