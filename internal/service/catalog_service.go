package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/repository"
)

// StudentExamStatus is the point-in-time state of an exam as seen by one
// student. SUDAH_DIKUMPULKAN takes precedence over every window state.
type StudentExamStatus string

const (
	StatusBelumDibuka       StudentExamStatus = "BELUM_DIBUKA"
	StatusSedangBerlangsung StudentExamStatus = "SEDANG_BERLANGSUNG"
	StatusDitutup           StudentExamStatus = "DITUTUP"
	StatusSudahDikumpulkan  StudentExamStatus = "SUDAH_DIKUMPULKAN"
)

// CatalogExam is an exam as displayed in the student catalog.
type CatalogExam struct {
	model.Exam
	StatusUjian StudentExamStatus `json:"status_ujian"`
	CanStart    bool              `json:"can_start"`
	Nilai       *int              `json:"nilai,omitempty"`
}

// ExamCatalogService resolves which exams a student can see and take.
// Read-only; no side effects.
type ExamCatalogService struct {
	examRepo *repository.ExamRepository
	subRepo  *repository.SubmissionRepository
}

// NewExamCatalogService creates a new ExamCatalogService.
func NewExamCatalogService(examRepo *repository.ExamRepository, subRepo *repository.SubmissionRepository) *ExamCatalogService {
	return &ExamCatalogService{examRepo: examRepo, subRepo: subRepo}
}

// ListForStudent returns the eligible exams for a student with their
// computed point-in-time status.
func (s *ExamCatalogService) ListForStudent(ctx context.Context, studentID, schoolID int, className string) ([]CatalogExam, error) {
	exams, err := s.examRepo.ListEligible(ctx, schoolID, className)
	if err != nil {
		return nil, fmt.Errorf("list eligible exams: %w", err)
	}

	submissions, err := s.subRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	subMap := make(map[uuid.UUID]*model.Submission, len(submissions))
	for i := range submissions {
		subMap[submissions[i].ExamID] = &submissions[i]
	}

	now := time.Now()
	catalog := make([]CatalogExam, 0, len(exams))

	for _, exam := range exams {
		sub := subMap[exam.ID]
		status := resolveExamStatus(&exam, sub, now)

		entry := CatalogExam{
			Exam:        exam,
			StatusUjian: status,
			CanStart:    status == StatusSedangBerlangsung,
		}
		if status == StatusSudahDikumpulkan && exam.TampilkanNilai {
			entry.Nilai = sub.Nilai
		}
		catalog = append(catalog, entry)
	}

	return catalog, nil
}

// resolveExamStatus computes the student-facing status of an exam. All
// window comparisons stay in the naive local-time space the timestamps were
// stored in.
func resolveExamStatus(exam *model.Exam, sub *model.Submission, now time.Time) StudentExamStatus {
	if sub != nil && sub.SubmittedAt != nil {
		return StatusSudahDikumpulkan
	}
	if now.Before(exam.OpenAt) {
		return StatusBelumDibuka
	}
	if now.After(exam.CloseAt) {
		return StatusDitutup
	}
	return StatusSedangBerlangsung
}
