package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ujianku/ujianku-backend/internal/model"
)

// ErrEssayNotAutoScored is returned when Score is called with an ESSAY
// question. Essays are graded by a teacher, never by this engine.
var ErrEssayNotAutoScored = errors.New("essay answers are graded manually")

// Input carries everything needed to score one answer: the question's type,
// point value and key-bearing payload, plus the stored answer envelope.
type Input struct {
	Tipe    model.QuestionType
	Poin    int
	Payload json.RawMessage
	Jawaban json.RawMessage
}

// Result is the verdict for one answer. IsCorrect is nil only when the
// question cannot be auto-judged.
type Result struct {
	Nilai     int
	IsCorrect *bool
}

// Score judges a single submitted answer against its question's answer key.
// Pure computation: no I/O, no side effects. A malformed key or answer comes
// back as an error so the caller can decide how much of the submission it
// poisons.
func Score(in Input) (Result, error) {
	switch in.Tipe {
	case model.QuestionTypePilihanGanda:
		return scorePilihanGanda(in)
	case model.QuestionTypeBenarSalah:
		return scoreBenarSalah(in)
	case model.QuestionTypeIsianSingkat:
		return scoreIsianSingkat(in)
	case model.QuestionTypePencocokan:
		return scorePencocokan(in)
	case model.QuestionTypeEssay:
		return Result{}, ErrEssayNotAutoScored
	default:
		return Result{}, fmt.Errorf("%w: unknown question type %q", ErrMalformedKey, in.Tipe)
	}
}

func scorePilihanGanda(in Input) (Result, error) {
	var key pilihanGandaKey
	if err := json.Unmarshal(in.Payload, &key); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if key.JawabanBenar == "" {
		return Result{}, fmt.Errorf("%w: pilihan ganda without jawaban_benar", ErrMalformedKey)
	}

	v, err := Unwrap(in.Jawaban)
	if err != nil {
		return Result{}, err
	}

	if asString(v) == key.JawabanBenar {
		return Result{Nilai: in.Poin, IsCorrect: boolPtr(true)}, nil
	}
	return Result{Nilai: 0, IsCorrect: boolPtr(false)}, nil
}

func scoreBenarSalah(in Input) (Result, error) {
	var key benarSalahKey
	if err := json.Unmarshal(in.Payload, &key); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if key.JawabanBenar == nil {
		return Result{}, fmt.Errorf("%w: benar salah without jawaban_benar", ErrMalformedKey)
	}

	v, err := Unwrap(in.Jawaban)
	if err != nil {
		return Result{}, err
	}

	if coerceBool(v) == *key.JawabanBenar {
		return Result{Nilai: in.Poin, IsCorrect: boolPtr(true)}, nil
	}
	return Result{Nilai: 0, IsCorrect: boolPtr(false)}, nil
}

func scoreIsianSingkat(in Input) (Result, error) {
	var key isianSingkatKey
	if err := json.Unmarshal(in.Payload, &key); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(key.JawabanBenar) == 0 {
		return Result{}, fmt.Errorf("%w: isian singkat without accepted answers", ErrMalformedKey)
	}

	v, err := Unwrap(in.Jawaban)
	if err != nil {
		return Result{}, err
	}

	submitted := strings.TrimSpace(asString(v))
	for _, accepted := range key.JawabanBenar {
		accepted = strings.TrimSpace(accepted)
		if key.CaseSensitive {
			if submitted == accepted {
				return Result{Nilai: in.Poin, IsCorrect: boolPtr(true)}, nil
			}
		} else if strings.EqualFold(submitted, accepted) {
			return Result{Nilai: in.Poin, IsCorrect: boolPtr(true)}, nil
		}
	}
	return Result{Nilai: 0, IsCorrect: boolPtr(false)}, nil
}

func scorePencocokan(in Input) (Result, error) {
	var key pencocokanKey
	if err := json.Unmarshal(in.Payload, &key); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	total := len(key.JawabanBenar)
	if total == 0 {
		return Result{}, fmt.Errorf("%w: pencocokan without pairs", ErrMalformedKey)
	}

	v, err := Unwrap(in.Jawaban)
	if err != nil {
		return Result{}, err
	}

	submitted := matchingAnswerMap(v)
	correct := 0
	for left, right := range key.JawabanBenar {
		if submitted[left] == right {
			correct++
		}
	}

	nilai := int(math.Round(float64(in.Poin) * float64(correct) / float64(total)))
	return Result{Nilai: nilai, IsCorrect: boolPtr(correct == total)}, nil
}

// matchingAnswerMap coerces an unwrapped PENCOCOKAN answer into a left→right
// mapping. Some clients double-encode the mapping as a JSON string; a parse
// failure degrades to an empty mapping, never an error.
func matchingAnswerMap(v any) map[string]string {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = asString(val)
		}
		return out
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return map[string]string{}
		}
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = asString(val)
		}
		return out
	default:
		return map[string]string{}
	}
}

// coerceBool maps an unwrapped answer value onto a boolean: booleans pass
// through, strings match "true" case-insensitively, numbers match 1,
// everything else is false.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	case float64:
		return t == 1
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	default:
		return false
	}
}

// asString renders an unwrapped answer value the way the comparison rules
// expect: numbers without a trailing ".0", booleans as "true"/"false".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
