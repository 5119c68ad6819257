package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
)

// maxEnvelopeDepth bounds how many nested envelope layers Unwrap will strip.
// Anything deeper is treated as corrupt data, not a value to chase.
const maxEnvelopeDepth = 5

// ErrEnvelopeTooDeep is returned when an answer payload nests envelopes
// beyond maxEnvelopeDepth.
var ErrEnvelopeTooDeep = errors.New("answer envelope nested too deep")

// Unwrap decodes a stored answer payload and strips every envelope layer
// ({"jawaban": v} or {"value": v}, possibly nested) down to the terminal
// scalar or object. An empty payload unwraps to nil.
func Unwrap(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return unwrapValue(v)
}

func unwrapValue(v any) (any, error) {
	for depth := 0; ; depth++ {
		inner, ok := envelopeValue(v)
		if !ok {
			return v, nil
		}
		if depth >= maxEnvelopeDepth {
			return nil, ErrEnvelopeTooDeep
		}
		v = inner
	}
}

// envelopeValue reports whether v is a single-key wrapper object and, if so,
// returns the wrapped value. Only {"jawaban": …} and {"value": …} count as
// wrappers; a map with additional keys is a terminal answer object (e.g. a
// PENCOCOKAN pair mapping).
func envelopeValue(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, false
	}
	for k, inner := range m {
		if k == "jawaban" || k == "value" {
			return inner, true
		}
	}
	return nil, false
}

// Normalize converts a submitted raw answer (bare scalar, bare object, or an
// already-enveloped value) into the canonical storage envelope
// {"jawaban": <terminal value>}. Normalizing an already-normalized payload
// yields the same envelope.
func Normalize(raw json.RawMessage) (json.RawMessage, error) {
	v, err := Unwrap(raw)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(map[string]any{"jawaban": v})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}
