package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Submission is one student's attempt record for one exam, unique per
// (exam, student) pair. SubmittedAt nil means the attempt is still open;
// once set the submission is locked and no answer write may touch it.
type Submission struct {
	ID          uuid.UUID  `json:"id"`
	ExamID      uuid.UUID  `json:"exam_id"`
	StudentID   int        `json:"student_id"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Nilai       *int       `json:"nilai,omitempty"`
}

// Answer is a student's stored answer to one question, unique per
// (submission, question) pair. Jawaban always holds the canonical JSON
// envelope. Nilai and IsCorrect stay NULL until finalization; for ESSAY
// questions they stay NULL until a teacher grades them by hand.
type Answer struct {
	ID           uuid.UUID       `json:"id"`
	SubmissionID uuid.UUID       `json:"submission_id"`
	QuestionID   uuid.UUID       `json:"question_id"`
	Jawaban      json.RawMessage `json:"jawaban"`
	Nilai        *int            `json:"nilai,omitempty"`
	IsCorrect    *bool           `json:"is_correct,omitempty"`
	Feedback     *string         `json:"feedback,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SaveAnswerRequest is the payload for autosaving one answer.
type SaveAnswerRequest struct {
	QuestionID string          `json:"question_id" binding:"required,uuid"`
	Jawaban    json.RawMessage `json:"jawaban" binding:"required"`
}

// SubmitExamRequest carries the final answer batch; answers already
// autosaved earlier may be omitted.
type SubmitExamRequest struct {
	Answers []SaveAnswerRequest `json:"answers" binding:"omitempty,dive"`
}

// TimeRemaining reports the seconds left in an exam's absolute window.
type TimeRemaining struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
	NotStarted       bool  `json:"not_started"`
	AlreadySubmitted bool  `json:"already_submitted"`
}

// GradeEssayRequest is the payload for a teacher grading an essay answer.
type GradeEssayRequest struct {
	Nilai    int    `json:"nilai" binding:"min=0,max=100"`
	Feedback string `json:"feedback" binding:"omitempty,max=4000"`
}
