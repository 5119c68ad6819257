package scoring

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ujianku/ujianku-backend/internal/model"
)

// ErrMalformedKey is returned when a question's stored payload cannot be
// parsed into a usable answer key.
var ErrMalformedKey = errors.New("malformed answer key payload")

// Option is one selectable choice of a PILIHAN_GANDA question.
type Option struct {
	ID   string `json:"id"`
	Teks string `json:"teks"`
}

// MatchItem is one entry on either side of a PENCOCOKAN question.
type MatchItem struct {
	ID   string `json:"id"`
	Teks string `json:"teks"`
}

type pilihanGandaKey struct {
	Opsi         []Option `json:"opsi"`
	JawabanBenar string   `json:"jawaban_benar"`
}

type benarSalahKey struct {
	JawabanBenar *bool `json:"jawaban_benar"`
}

type isianSingkatKey struct {
	JawabanBenar  []string `json:"jawaban_benar"`
	CaseSensitive bool     `json:"case_sensitive"`
}

type pencocokanKey struct {
	Kiri         []MatchItem       `json:"kiri"`
	Kanan        []MatchItem       `json:"kanan"`
	JawabanBenar map[string]string `json:"jawaban_benar"`
}

// StudentView returns a question payload with every answer-key field removed.
// Option and matching-item text survives; jawaban_benar never does.
func StudentView(tipe model.QuestionType, payload json.RawMessage) (json.RawMessage, error) {
	switch tipe {
	case model.QuestionTypePilihanGanda:
		var key pilihanGandaKey
		if err := json.Unmarshal(payload, &key); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return json.Marshal(map[string]any{"opsi": key.Opsi})
	case model.QuestionTypePencocokan:
		var key pencocokanKey
		if err := json.Unmarshal(payload, &key); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return json.Marshal(map[string]any{"kiri": key.Kiri, "kanan": key.Kanan})
	case model.QuestionTypeBenarSalah, model.QuestionTypeIsianSingkat, model.QuestionTypeEssay:
		return json.RawMessage(`{}`), nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrMalformedKey, tipe)
	}
}
