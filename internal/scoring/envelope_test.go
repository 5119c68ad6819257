package scoring

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestUnwrap_RoundTrip(t *testing.T) {
	values := []any{
		"B",
		true,
		float64(42),
		map[string]any{"L1": "R1", "L2": "R2"},
	}

	for _, want := range values {
		for wraps := 0; wraps <= 5; wraps++ {
			v := want
			for i := 0; i < wraps; i++ {
				if i%2 == 0 {
					v = map[string]any{"jawaban": v}
				} else {
					v = map[string]any{"value": v}
				}
			}
			raw, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			got, err := Unwrap(raw)
			if err != nil {
				t.Fatalf("wraps=%d: unexpected error: %v", wraps, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("wraps=%d: expected %v, got %v", wraps, want, got)
			}
		}
	}
}

func TestUnwrap_TooDeep(t *testing.T) {
	raw := []byte(`"B"`)
	for i := 0; i < 6; i++ {
		raw = []byte(`{"value":` + string(raw) + `}`)
	}

	_, err := Unwrap(json.RawMessage(raw))
	if !errors.Is(err, ErrEnvelopeTooDeep) {
		t.Fatalf("expected ErrEnvelopeTooDeep, got %v", err)
	}
}

func TestUnwrap_TerminalObjectWithWrapperKey(t *testing.T) {
	// A multi-key object is terminal even if one key is named "value".
	raw := json.RawMessage(`{"value":"R1","L2":"R2"}`)
	got, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || len(m) != 2 {
		t.Fatalf("expected 2-key terminal object, got %v", got)
	}
}

func TestUnwrap_Empty(t *testing.T) {
	got, err := Unwrap(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare scalar", in: `"B"`, want: `{"jawaban":"B"}`},
		{name: "bare object", in: `{"L1":"R1"}`, want: `{"jawaban":{"L1":"R1"}}`},
		{name: "already enveloped", in: `{"jawaban":"B"}`, want: `{"jawaban":"B"}`},
		{name: "nested envelopes collapse", in: `{"value":{"jawaban":"B"}}`, want: `{"jawaban":"B"}`},
		{name: "bare bool", in: `true`, want: `{"jawaban":true}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(json.RawMessage(tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(json.RawMessage(`{"value":{"value":"B"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected idempotent normalize, got %s then %s", first, second)
	}
}
