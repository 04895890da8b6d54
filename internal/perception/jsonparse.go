package perception

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Models wrap JSON in prose, markdown fences, or trailing commentary more
// often than they return it clean. ParseLoose recovers the object anyway.

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseLoose extracts a JSON object from LLM output using a sequence of
// increasingly forgiving strategies:
//
//  1. direct unmarshal
//  2. first fenced ```json code block
//  3. the span from the first '{' to the last '}'
//  4. strip leading/trailing fence lines and reparse
//
// It returns fallback when every strategy fails, and never panics. A nil
// fallback comes back as an empty map so callers can index the result
// without checking.
func ParseLoose(content string, fallback map[string]any) map[string]any {
	if fallback == nil {
		fallback = map[string]any{}
	}

	var out map[string]any

	if err := json.Unmarshal([]byte(content), &out); err == nil && out != nil {
		return out
	}

	if m := fencedJSONPattern.FindStringSubmatch(content); len(m) > 1 {
		if err := json.Unmarshal([]byte(m[1]), &out); err == nil && out != nil {
			return out
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &out); err == nil && out != nil {
			return out
		}
	}

	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 2 {
			cleaned = strings.Join(lines[1:len(lines)-1], "\n")
			if err := json.Unmarshal([]byte(cleaned), &out); err == nil && out != nil {
				return out
			}
		}
	}

	return fallback
}

// DecodeLoose is the typed variant of ParseLoose: it recovers the JSON
// object with the same strategies and unmarshals it into v. Unlike
// ParseLoose it reports failure, since there is no generic fallback for a
// typed target.
func DecodeLoose(content string, v any) error {
	recovered := ParseLoose(content, nil)
	if len(recovered) == 0 {
		return errNoJSON
	}
	data, err := json.Marshal(recovered)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

var errNoJSON = errors.New("no JSON object found in content")

// StringField pulls a string value out of a loosely parsed object,
// returning def when the key is absent or not a string.
func StringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// ObjectField pulls a nested object out of a loosely parsed object,
// returning an empty map when the key is absent or not an object.
func ObjectField(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}
