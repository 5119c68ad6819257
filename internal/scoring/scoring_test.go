package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ujianku/ujianku-backend/internal/model"
)

const pgPayload = `{"opsi":[{"id":"A","teks":"Merah"},{"id":"B","teks":"Biru"},{"id":"C","teks":"Hijau"}],"jawaban_benar":"B"}`

func TestScore_PilihanGanda(t *testing.T) {
	tests := []struct {
		name    string
		jawaban string
		nilai   int
		correct bool
	}{
		{name: "correct bare string", jawaban: `"B"`, nilai: 10, correct: true},
		{name: "correct enveloped", jawaban: `{"jawaban":"B"}`, nilai: 10, correct: true},
		{name: "correct double enveloped", jawaban: `{"value":{"value":"B"}}`, nilai: 10, correct: true},
		{name: "wrong option", jawaban: `"A"`, nilai: 0, correct: false},
		{name: "case mismatch is wrong", jawaban: `"b"`, nilai: 0, correct: false},
		{name: "empty string is wrong", jawaban: `""`, nilai: 0, correct: false},
		{name: "missing answer is wrong", jawaban: ``, nilai: 0, correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(Input{
				Tipe:    model.QuestionTypePilihanGanda,
				Poin:    10,
				Payload: json.RawMessage(pgPayload),
				Jawaban: json.RawMessage(tc.jawaban),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertResult(t, got, tc.nilai, &tc.correct)
		})
	}
}

func TestScore_PilihanGanda_NumericOptionID(t *testing.T) {
	got, err := Score(Input{
		Tipe:    model.QuestionTypePilihanGanda,
		Poin:    5,
		Payload: json.RawMessage(`{"opsi":[{"id":"2","teks":"Dua"}],"jawaban_benar":"2"}`),
		Jawaban: json.RawMessage(`2`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertResult(t, got, 5, boolPtr(true))
}

func TestScore_BenarSalah(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		jawaban string
		nilai   int
		correct bool
	}{
		{name: "bool true correct", key: `true`, jawaban: `true`, nilai: 4, correct: true},
		{name: "bool false correct", key: `false`, jawaban: `false`, nilai: 4, correct: true},
		{name: "string true coerced", key: `true`, jawaban: `"TRUE"`, nilai: 4, correct: true},
		{name: "number one coerced", key: `true`, jawaban: `1`, nilai: 4, correct: true},
		{name: "number zero is false", key: `false`, jawaban: `0`, nilai: 4, correct: true},
		{name: "garbage string is false", key: `true`, jawaban: `"ya"`, nilai: 0, correct: false},
		{name: "enveloped bool", key: `true`, jawaban: `{"jawaban":true}`, nilai: 4, correct: true},
		{name: "missing answer is false", key: `true`, jawaban: ``, nilai: 0, correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(Input{
				Tipe:    model.QuestionTypeBenarSalah,
				Poin:    4,
				Payload: json.RawMessage(`{"jawaban_benar":` + tc.key + `}`),
				Jawaban: json.RawMessage(tc.jawaban),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertResult(t, got, tc.nilai, &tc.correct)
		})
	}
}

func TestScore_IsianSingkat(t *testing.T) {
	insensitive := `{"jawaban_benar":["Jakarta","DKI Jakarta"],"case_sensitive":false}`
	sensitive := `{"jawaban_benar":["Jakarta"],"case_sensitive":true}`

	tests := []struct {
		name    string
		key     string
		jawaban string
		nilai   int
		correct bool
	}{
		{name: "exact match", key: insensitive, jawaban: `"Jakarta"`, nilai: 8, correct: true},
		{name: "alternate accepted answer", key: insensitive, jawaban: `"DKI Jakarta"`, nilai: 8, correct: true},
		{name: "case folds when insensitive", key: insensitive, jawaban: `"jakarta"`, nilai: 8, correct: true},
		{name: "surrounding spaces trimmed", key: insensitive, jawaban: `"  Jakarta  "`, nilai: 8, correct: true},
		{name: "wrong answer", key: insensitive, jawaban: `"Bandung"`, nilai: 0, correct: false},
		{name: "case matters when sensitive", key: sensitive, jawaban: `"jakarta"`, nilai: 0, correct: false},
		{name: "sensitive exact still trims", key: sensitive, jawaban: `" Jakarta "`, nilai: 8, correct: true},
		{name: "numeric answer stringified", key: `{"jawaban_benar":["17"],"case_sensitive":false}`, jawaban: `17`, nilai: 8, correct: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(Input{
				Tipe:    model.QuestionTypeIsianSingkat,
				Poin:    8,
				Payload: json.RawMessage(tc.key),
				Jawaban: json.RawMessage(tc.jawaban),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertResult(t, got, tc.nilai, &tc.correct)
		})
	}
}

const pcPayload = `{
	"kiri":[{"id":"L1","teks":"Ibukota"},{"id":"L2","teks":"Mata uang"},{"id":"L3","teks":"Bahasa"},{"id":"L4","teks":"Pulau"}],
	"kanan":[{"id":"R1","teks":"Jakarta"},{"id":"R2","teks":"Rupiah"},{"id":"R3","teks":"Indonesia"},{"id":"R4","teks":"Jawa"}],
	"jawaban_benar":{"L1":"R1","L2":"R2","L3":"R3","L4":"R4"}
}`

func TestScore_Pencocokan(t *testing.T) {
	tests := []struct {
		name    string
		jawaban string
		nilai   int
		correct bool
	}{
		{name: "all pairs correct", jawaban: `{"L1":"R1","L2":"R2","L3":"R3","L4":"R4"}`, nilai: 10, correct: true},
		{name: "three of four", jawaban: `{"L1":"R1","L2":"R2","L3":"R3","L4":"R9"}`, nilai: 8, correct: false},
		{name: "half", jawaban: `{"L1":"R1","L2":"R2"}`, nilai: 5, correct: false},
		{name: "one of four", jawaban: `{"L1":"R1"}`, nilai: 3, correct: false},
		{name: "zero pairs", jawaban: `{"L1":"R4","L2":"R3"}`, nilai: 0, correct: false},
		{name: "enveloped mapping", jawaban: `{"jawaban":{"L1":"R1","L2":"R2","L3":"R3","L4":"R4"}}`, nilai: 10, correct: true},
		{name: "double encoded string", jawaban: `"{\"L1\":\"R1\",\"L2\":\"R2\",\"L3\":\"R3\",\"L4\":\"R4\"}"`, nilai: 10, correct: true},
		{name: "unparseable string degrades to empty", jawaban: `"not-json"`, nilai: 0, correct: false},
		{name: "missing answer scores zero", jawaban: ``, nilai: 0, correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(Input{
				Tipe:    model.QuestionTypePencocokan,
				Poin:    10,
				Payload: json.RawMessage(pcPayload),
				Jawaban: json.RawMessage(tc.jawaban),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertResult(t, got, tc.nilai, &tc.correct)
		})
	}
}

func TestScore_Pencocokan_Monotonic(t *testing.T) {
	// Awarded score must never decrease as the correct-pair count grows.
	answers := []string{
		`{}`,
		`{"L1":"R1"}`,
		`{"L1":"R1","L2":"R2"}`,
		`{"L1":"R1","L2":"R2","L3":"R3"}`,
		`{"L1":"R1","L2":"R2","L3":"R3","L4":"R4"}`,
	}

	prev := -1
	for i, jawaban := range answers {
		got, err := Score(Input{
			Tipe:    model.QuestionTypePencocokan,
			Poin:    7,
			Payload: json.RawMessage(pcPayload),
			Jawaban: json.RawMessage(jawaban),
		})
		if err != nil {
			t.Fatalf("pairs=%d: unexpected error: %v", i, err)
		}
		if got.Nilai < prev {
			t.Fatalf("pairs=%d: score decreased from %d to %d", i, prev, got.Nilai)
		}
		prev = got.Nilai
	}
	if prev != 7 {
		t.Fatalf("expected full poin 7 with all pairs correct, got %d", prev)
	}
}

func TestScore_Essay(t *testing.T) {
	_, err := Score(Input{
		Tipe:    model.QuestionTypeEssay,
		Poin:    20,
		Payload: json.RawMessage(`{}`),
		Jawaban: json.RawMessage(`"jawaban panjang siswa"`),
	})
	if !errors.Is(err, ErrEssayNotAutoScored) {
		t.Fatalf("expected ErrEssayNotAutoScored, got %v", err)
	}
}

func TestScore_MalformedKey(t *testing.T) {
	tests := []struct {
		name    string
		tipe    model.QuestionType
		payload string
	}{
		{name: "pg missing key", tipe: model.QuestionTypePilihanGanda, payload: `{"opsi":[]}`},
		{name: "pg invalid json", tipe: model.QuestionTypePilihanGanda, payload: `{`},
		{name: "benar salah missing key", tipe: model.QuestionTypeBenarSalah, payload: `{}`},
		{name: "isian empty accept list", tipe: model.QuestionTypeIsianSingkat, payload: `{"jawaban_benar":[]}`},
		{name: "pencocokan no pairs", tipe: model.QuestionTypePencocokan, payload: `{"jawaban_benar":{}}`},
		{name: "unknown type", tipe: model.QuestionType("TEKA_TEKI"), payload: `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Score(Input{
				Tipe:    tc.tipe,
				Poin:    5,
				Payload: json.RawMessage(tc.payload),
				Jawaban: json.RawMessage(`"x"`),
			})
			if !errors.Is(err, ErrMalformedKey) {
				t.Fatalf("expected ErrMalformedKey, got %v", err)
			}
		})
	}
}

func TestStudentView_StripsKeys(t *testing.T) {
	tests := []struct {
		name    string
		tipe    model.QuestionType
		payload string
	}{
		{name: "pilihan ganda", tipe: model.QuestionTypePilihanGanda, payload: pgPayload},
		{name: "pencocokan", tipe: model.QuestionTypePencocokan, payload: pcPayload},
		{name: "benar salah", tipe: model.QuestionTypeBenarSalah, payload: `{"jawaban_benar":true}`},
		{name: "isian singkat", tipe: model.QuestionTypeIsianSingkat, payload: `{"jawaban_benar":["x"],"case_sensitive":true}`},
		{name: "essay", tipe: model.QuestionTypeEssay, payload: `{"rubrik":"kelengkapan argumen"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := StudentView(tc.tipe, json.RawMessage(tc.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var m map[string]any
			if err := json.Unmarshal(got, &m); err != nil {
				t.Fatalf("student view is not an object: %v", err)
			}
			if _, leaked := m["jawaban_benar"]; leaked {
				t.Fatalf("answer key leaked into student view: %s", got)
			}
			if _, leaked := m["case_sensitive"]; leaked {
				t.Fatalf("key config leaked into student view: %s", got)
			}
			if _, leaked := m["rubrik"]; leaked {
				t.Fatalf("grading rubric leaked into student view: %s", got)
			}
		})
	}
}

func TestStudentView_KeepsOptionText(t *testing.T) {
	got, err := StudentView(model.QuestionTypePilihanGanda, json.RawMessage(pgPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var view struct {
		Opsi []Option `json:"opsi"`
	}
	if err := json.Unmarshal(got, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Opsi) != 3 || view.Opsi[1].Teks != "Biru" {
		t.Fatalf("expected option text to survive, got %s", got)
	}
}

func assertResult(t *testing.T, got Result, nilai int, correct *bool) {
	t.Helper()
	if got.Nilai != nilai {
		t.Fatalf("expected nilai=%d, got=%d", nilai, got.Nilai)
	}
	if correct == nil {
		if got.IsCorrect != nil {
			t.Fatalf("expected is_correct=nil, got=%v", *got.IsCorrect)
		}
		return
	}
	if got.IsCorrect == nil {
		t.Fatalf("expected is_correct=%v, got=nil", *correct)
	}
	if *got.IsCorrect != *correct {
		t.Fatalf("expected is_correct=%v, got=%v", *correct, *got.IsCorrect)
	}
}
