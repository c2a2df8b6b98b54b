package judge

import (
	"fmt"
	"strconv"
	"strings"
)

// scoreKey marks an extracted object as assessment-mode output. Objects
// without it are demoted to plain conversation even when JSON-shaped.
const scoreKey = "dangerScore"

// Verdict is the structured risk assessment parsed from model output.
type Verdict struct {
	DangerScore float64
	Label       string
	RedFlags    []string
	Advice      string
}

// verdictFromObject builds a Verdict from an extracted object that already
// carries the dangerScore key. Any other missing field is a reportable
// error that fails the round; it is never defaulted silently.
func verdictFromObject(obj map[string]any) (*Verdict, error) {
	score, err := floatField(obj, scoreKey)
	if err != nil {
		return nil, err
	}

	label, err := stringField(obj, "verdict")
	if err != nil {
		return nil, err
	}

	flags, err := stringSliceField(obj, "redFlags")
	if err != nil {
		return nil, err
	}

	advice, err := stringField(obj, "advice")
	if err != nil {
		return nil, err
	}

	return &Verdict{
		DangerScore: score,
		Label:       label,
		RedFlags:    flags,
		Advice:      advice,
	}, nil
}

func floatField(obj map[string]any, key string) (float64, error) {
	value, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("verdict is missing %q field", key)
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("verdict field %q is not a number: %q", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("verdict field %q is not a number: %v", key, value)
	}
}

func stringField(obj map[string]any, key string) (string, error) {
	value, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("verdict is missing %q field", key)
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("verdict field %q is not a string: %v", key, value)
	}

	return s, nil
}

func stringSliceField(obj map[string]any, key string) ([]string, error) {
	value, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("verdict is missing %q field", key)
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("verdict field %q is not a list: %v", key, value)
	}

	// Rendered in received order; zero entries is valid.
	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("verdict field %q contains a non-string entry: %v", key, item)
		}
		result = append(result, s)
	}

	return result, nil
}
