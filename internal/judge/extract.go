package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON reports that the text contains no {...} span at all.
var ErrNoJSON = errors.New("no json object found in response")

// ExtractObject locates the span from the first '{' to the last '}' in the
// raw text and parses it as a JSON object. The span search is positional on
// purpose, not brace-balance-aware: the model may wrap the object in prose
// or code fences, and on commentary-laden or multi-object responses the
// whole outer span is taken as-is. Schema validation happens one layer up.
func ExtractObject(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSON
	}

	span := raw[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("parse extracted span: %w", err)
	}

	return obj, nil
}
