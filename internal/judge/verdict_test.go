package judge

import (
	"strings"
	"testing"
)

func TestVerdictFromObject(t *testing.T) {
	t.Parallel()

	obj := map[string]any{
		"dangerScore": float64(72),
		"verdict":     "ブラック",
		"redFlags":    []any{"みなし残業45時間", "アットホームな職場"},
		"advice":      "求人票の給与欄をもう一度読め",
	}

	v, err := verdictFromObject(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.DangerScore != 72 || v.Label != "ブラック" {
		t.Fatalf("unexpected verdict: %+v", v)
	}

	if len(v.RedFlags) != 2 || v.RedFlags[0] != "みなし残業45時間" {
		t.Fatalf("red flags must keep received order: %+v", v.RedFlags)
	}
}

func TestVerdictFromObjectStringScore(t *testing.T) {
	t.Parallel()

	obj := map[string]any{
		"dangerScore": " 88 ",
		"verdict":     "ブラック",
		"redFlags":    []any{},
		"advice":      "逃げろ",
	}

	v, err := verdictFromObject(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.DangerScore != 88 {
		t.Fatalf("expected coerced score 88, got %v", v.DangerScore)
	}

	if len(v.RedFlags) != 0 {
		t.Fatalf("expected zero red flags, got %+v", v.RedFlags)
	}
}

func TestVerdictFromObjectMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		missing string
		obj     map[string]any
	}{
		{
			name:    "missing verdict",
			missing: "verdict",
			obj: map[string]any{
				"dangerScore": float64(50),
				"redFlags":    []any{"a"},
				"advice":      "b",
			},
		},
		{
			name:    "missing redFlags",
			missing: "redFlags",
			obj: map[string]any{
				"dangerScore": float64(50),
				"verdict":     "微妙",
				"advice":      "b",
			},
		},
		{
			name:    "missing advice",
			missing: "advice",
			obj: map[string]any{
				"dangerScore": float64(50),
				"verdict":     "微妙",
				"redFlags":    []any{"a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := verdictFromObject(tt.obj)
			if err == nil {
				t.Fatal("expected error for incomplete verdict")
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Fatalf("expected %q in error, got %v", tt.missing, err)
			}
		})
	}
}

func TestVerdictFromObjectWrongTypes(t *testing.T) {
	t.Parallel()

	obj := map[string]any{
		"dangerScore": "not a number",
		"verdict":     "x",
		"redFlags":    []any{},
		"advice":      "y",
	}

	if _, err := verdictFromObject(obj); err == nil {
		t.Fatal("expected error for non-numeric score")
	}

	obj["dangerScore"] = float64(10)
	obj["redFlags"] = "not a list"
	if _, err := verdictFromObject(obj); err == nil {
		t.Fatal("expected error for non-list redFlags")
	}
}
