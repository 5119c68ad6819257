package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType enumerates the five supported question types.
type QuestionType string

const (
	QuestionTypePilihanGanda QuestionType = "PILIHAN_GANDA"
	QuestionTypeBenarSalah   QuestionType = "BENAR_SALAH"
	QuestionTypeIsianSingkat QuestionType = "ISIAN_SINGKAT"
	QuestionTypePencocokan   QuestionType = "PENCOCOKAN"
	QuestionTypeEssay        QuestionType = "ESSAY"
)

// Question represents a single exam question. Payload is the type-specific
// JSON blob that always carries the answer key; it must never reach a
// student unstripped.
type Question struct {
	ID         uuid.UUID       `json:"id"`
	ExamID     uuid.UUID       `json:"exam_id"`
	Tipe       QuestionType    `json:"tipe"`
	Pertanyaan string          `json:"pertanyaan"`
	Poin       int             `json:"poin"`
	Payload    json.RawMessage `json:"payload"`
	Urutan     int             `json:"urutan"`
}

// QuestionForStudent is a question with the answer key stripped from the
// payload, safe to send to students.
type QuestionForStudent struct {
	ID         uuid.UUID       `json:"id"`
	Tipe       QuestionType    `json:"tipe"`
	Pertanyaan string          `json:"pertanyaan"`
	Poin       int             `json:"poin"`
	Payload    json.RawMessage `json:"payload"`
	Urutan     int             `json:"urutan"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Tipe       string          `json:"tipe" binding:"required,oneof=PILIHAN_GANDA BENAR_SALAH ISIAN_SINGKAT PENCOCOKAN ESSAY"`
	Pertanyaan string          `json:"pertanyaan" binding:"required,min=1,max=4000"`
	Poin       int             `json:"poin" binding:"required,min=1,max=100"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
	Urutan     int             `json:"urutan" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
