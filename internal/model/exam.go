package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft ExamStatus = "draft"
	ExamStatusAktif ExamStatus = "aktif"
	ExamStatusArsip ExamStatus = "arsip"
)

// Exam represents one scheduled assessment owned by a teacher within a school.
// OpenAt/CloseAt are naive timestamps in the school's local timezone; every
// window comparison in the system stays in that same naive space.
type Exam struct {
	ID             uuid.UUID  `json:"id"`
	SchoolID       int        `json:"school_id"`
	TeacherID      int        `json:"teacher_id"`
	SubjectID      int        `json:"subject_id"`
	Judul          string     `json:"judul"`
	TargetClasses  []string   `json:"target_classes"`
	OpenAt         time.Time  `json:"open_at"`
	CloseAt        time.Time  `json:"close_at"`
	AcakSoal       bool       `json:"acak_soal"`
	TampilkanNilai bool       `json:"tampilkan_nilai"`
	Status         ExamStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Judul          string    `json:"judul" binding:"required,min=3,max=255"`
	SubjectID      int       `json:"subject_id" binding:"required"`
	TargetClasses  []string  `json:"target_classes" binding:"required,min=1,dive,min=1,max=30"`
	OpenAt         time.Time `json:"open_at" binding:"required"`
	CloseAt        time.Time `json:"close_at" binding:"required,gtfield=OpenAt"`
	AcakSoal       bool      `json:"acak_soal"`
	TampilkanNilai bool      `json:"tampilkan_nilai"`
}

// ExamPaper is the Redis-cached payload sent to students (no answer keys).
type ExamPaper struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Judul     string               `json:"judul"`
	CloseAt   time.Time            `json:"close_at"`
	AcakSoal  bool                 `json:"acak_soal"`
	Questions []QuestionForStudent `json:"questions"`
}

// ValidateTokenRequest is the payload for validating a school exam token
// before starting an attempt.
type ValidateTokenRequest struct {
	Token string `json:"token" binding:"required,min=4,max=20"`
}
