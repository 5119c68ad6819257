package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ujianku/ujianku-backend/internal/model"
)

func benarSalahQuestion(poin int) model.Question {
	return model.Question{
		ID:      uuid.New(),
		Tipe:    model.QuestionTypeBenarSalah,
		Poin:    poin,
		Payload: json.RawMessage(`{"jawaban_benar":true}`),
	}
}

func answerFor(q model.Question, jawaban string) model.Answer {
	return model.Answer{
		ID:         uuid.New(),
		QuestionID: q.ID,
		Jawaban:    json.RawMessage(jawaban),
	}
}

func TestGradeSubmission_ScoreNormalization(t *testing.T) {
	// Four one-point questions, three answered correctly.
	questions := make([]model.Question, 4)
	for i := range questions {
		questions[i] = benarSalahQuestion(1)
	}

	answers := []model.Answer{
		answerFor(questions[0], `{"jawaban":true}`),
		answerFor(questions[1], `{"jawaban":true}`),
		answerFor(questions[2], `{"jawaban":true}`),
		answerFor(questions[3], `{"jawaban":false}`),
	}

	out := gradeSubmission(questions, answers)
	if out.TotalPoin != 4 {
		t.Fatalf("TotalPoin = %d, want 4", out.TotalPoin)
	}
	if out.TotalNilai != 3 {
		t.Fatalf("TotalNilai = %d, want 3", out.TotalNilai)
	}
	if out.FinalScore != 75 {
		t.Fatalf("FinalScore = %d, want 75", out.FinalScore)
	}
	if len(out.QuestionIDs) != 4 {
		t.Fatalf("scored %d answers, want 4", len(out.QuestionIDs))
	}
}

func TestGradeSubmission_MixedTypes(t *testing.T) {
	pilihanGanda := model.Question{
		ID:      uuid.New(),
		Tipe:    model.QuestionTypePilihanGanda,
		Poin:    50,
		Payload: json.RawMessage(`{"opsi":[{"id":"A","teks":"Satu"},{"id":"B","teks":"Dua"}],"jawaban_benar":"B"}`),
	}
	pencocokan := model.Question{
		ID:      uuid.New(),
		Tipe:    model.QuestionTypePencocokan,
		Poin:    50,
		Payload: json.RawMessage(`{"kiri":[{"id":"L1","teks":"Ibu kota"},{"id":"L2","teks":"Pulau"}],"kanan":[{"id":"R1","teks":"Jakarta"},{"id":"R2","teks":"Jawa"},{"id":"R9","teks":"Bali"}],"jawaban_benar":{"L1":"R1","L2":"R2"}}`),
	}
	questions := []model.Question{pilihanGanda, pencocokan}

	answers := []model.Answer{
		answerFor(pilihanGanda, `{"jawaban":"B"}`),
		answerFor(pencocokan, `{"jawaban":{"L1":"R1","L2":"R9"}}`),
	}

	out := gradeSubmission(questions, answers)
	if out.TotalNilai != 75 {
		t.Fatalf("TotalNilai = %d, want 75", out.TotalNilai)
	}
	if out.FinalScore != 75 {
		t.Fatalf("FinalScore = %d, want 75", out.FinalScore)
	}

	// The matching answer got partial credit but is not fully correct.
	for i, qid := range out.QuestionIDs {
		switch qid {
		case pilihanGanda.ID:
			if out.Nilais[i] != 50 || !out.Corrects[i] {
				t.Fatalf("pilihan ganda verdict = (%d, %t), want (50, true)", out.Nilais[i], out.Corrects[i])
			}
		case pencocokan.ID:
			if out.Nilais[i] != 25 || out.Corrects[i] {
				t.Fatalf("pencocokan verdict = (%d, %t), want (25, false)", out.Nilais[i], out.Corrects[i])
			}
		}
	}
}

func TestGradeSubmission_EssayNeverScored(t *testing.T) {
	essay := model.Question{
		ID:      uuid.New(),
		Tipe:    model.QuestionTypeEssay,
		Poin:    20,
		Payload: json.RawMessage(`{"rubrik":"Jelaskan proses fotosintesis"}`),
	}
	questions := []model.Question{essay}
	answers := []model.Answer{answerFor(essay, `{"jawaban":"Tumbuhan mengolah cahaya."}`)}

	out := gradeSubmission(questions, answers)
	if len(out.QuestionIDs) != 0 {
		t.Fatalf("essay answer was scored, verdicts = %d", len(out.QuestionIDs))
	}
	if out.TotalPoin != 20 {
		t.Fatalf("TotalPoin = %d, want 20", out.TotalPoin)
	}
	if out.FinalScore != 0 {
		t.Fatalf("FinalScore = %d, want 0", out.FinalScore)
	}
}

func TestGradeSubmission_UnansweredStaysInDenominator(t *testing.T) {
	answered := benarSalahQuestion(10)
	unanswered := benarSalahQuestion(10)
	questions := []model.Question{answered, unanswered}
	answers := []model.Answer{answerFor(answered, `{"jawaban":true}`)}

	out := gradeSubmission(questions, answers)
	if out.TotalPoin != 20 {
		t.Fatalf("TotalPoin = %d, want 20", out.TotalPoin)
	}
	if out.FinalScore != 50 {
		t.Fatalf("FinalScore = %d, want 50", out.FinalScore)
	}
	if len(out.QuestionIDs) != 1 {
		t.Fatalf("scored %d answers, want 1", len(out.QuestionIDs))
	}
}

func TestGradeSubmission_MalformedKeySkipsQuestion(t *testing.T) {
	broken := model.Question{
		ID:      uuid.New(),
		Tipe:    model.QuestionTypePilihanGanda,
		Poin:    10,
		Payload: json.RawMessage(`{"opsi":"not-a-list"}`),
	}
	good := benarSalahQuestion(10)
	questions := []model.Question{broken, good}

	answers := []model.Answer{
		answerFor(broken, `{"jawaban":"A"}`),
		answerFor(good, `{"jawaban":true}`),
	}

	out := gradeSubmission(questions, answers)
	if len(out.Skipped) != 1 || out.Skipped[0] != broken.ID {
		t.Fatalf("Skipped = %v, want [%s]", out.Skipped, broken.ID)
	}
	// The corrupt question still counts toward the denominator.
	if out.TotalPoin != 20 {
		t.Fatalf("TotalPoin = %d, want 20", out.TotalPoin)
	}
	if out.FinalScore != 50 {
		t.Fatalf("FinalScore = %d, want 50", out.FinalScore)
	}
}

func TestGradeSubmission_Empty(t *testing.T) {
	out := gradeSubmission(nil, nil)
	if out.FinalScore != 0 || out.TotalPoin != 0 {
		t.Fatalf("empty grade = (%d, %d), want zeros", out.FinalScore, out.TotalPoin)
	}
}

func TestRemainingIn(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	exam := &model.Exam{
		OpenAt:  now.Add(-time.Hour),
		CloseAt: now.Add(30 * time.Minute),
	}

	t.Run("not started counts against close", func(t *testing.T) {
		tr := remainingIn(exam, nil, now)
		if !tr.NotStarted {
			t.Fatal("expected NotStarted")
		}
		if tr.RemainingSeconds != 1800 {
			t.Fatalf("RemainingSeconds = %d, want 1800", tr.RemainingSeconds)
		}
	})

	t.Run("open attempt counts against close", func(t *testing.T) {
		tr := remainingIn(exam, &model.Submission{StartedAt: now.Add(-time.Minute)}, now)
		if tr.NotStarted || tr.AlreadySubmitted {
			t.Fatalf("unexpected flags: %+v", tr)
		}
		if tr.RemainingSeconds != 1800 {
			t.Fatalf("RemainingSeconds = %d, want 1800", tr.RemainingSeconds)
		}
	})

	t.Run("submitted reports zero", func(t *testing.T) {
		submittedAt := now.Add(-time.Minute)
		tr := remainingIn(exam, &model.Submission{SubmittedAt: &submittedAt}, now)
		if !tr.AlreadySubmitted {
			t.Fatal("expected AlreadySubmitted")
		}
		if tr.RemainingSeconds != 0 {
			t.Fatalf("RemainingSeconds = %d, want 0", tr.RemainingSeconds)
		}
	})

	t.Run("past close clamps to zero", func(t *testing.T) {
		tr := remainingIn(exam, nil, now.Add(time.Hour))
		if tr.RemainingSeconds != 0 {
			t.Fatalf("RemainingSeconds = %d, want 0", tr.RemainingSeconds)
		}
	})
}
