package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ujianku/ujianku-backend/internal/config"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/repository"
	"github.com/ujianku/ujianku-backend/internal/response"
	"github.com/ujianku/ujianku-backend/internal/scoring"
)

// Domain Errors
var (
	ErrNotExamOwner = errors.New("not the owner of this exam")
	ErrNoQuestions  = errors.New("exam has no questions, cannot activate")
	ErrExamNotDraft = errors.New("exam status is not draft")
)

// ExamService handles exam authoring, activation and the Redis paper cache.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	subRepo      *repository.SubmissionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	subRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		subRepo:      subRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// Create inserts a new exam in draft status for a teacher.
func (s *ExamService) Create(ctx context.Context, teacherID, schoolID int, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		SchoolID:       schoolID,
		TeacherID:      teacherID,
		SubjectID:      req.SubjectID,
		Judul:          req.Judul,
		TargetClasses:  req.TargetClasses,
		OpenAt:         req.OpenAt,
		CloseAt:        req.CloseAt,
		AcakSoal:       req.AcakSoal,
		TampilkanNilai: req.TampilkanNilai,
		Status:         model.ExamStatusDraft,
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Int("teacher_id", teacherID).Msg("Exam created")
	return exam, nil
}

// ListBySchool retrieves a school's exams with optional filters and pagination.
func (s *ExamService) ListBySchool(ctx context.Context, schoolID, page, perPage int, filter repository.ExamFilter) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.ListBySchoolPaginated(ctx, schoolID, page, perPage, filter)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	totalPages := (total + perPage - 1) / perPage
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return exams, pagination, nil
}

// ReplaceQuestions swaps the full question list of a draft exam. Each payload
// is parsed through the key stripper first so a broken answer key is rejected
// at authoring time, not at grading time.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, teacherID int, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		tipe := model.QuestionType(q.Tipe)
		if _, err := scoring.StudentView(tipe, q.Payload); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		urutan := q.Urutan
		if urutan == 0 {
			urutan = i + 1
		}
		questions[i] = model.Question{
			Tipe:       tipe,
			Pertanyaan: q.Pertanyaan,
			Poin:       q.Poin,
			Payload:    q.Payload,
			Urutan:     urutan,
		}
	}

	if err := s.questionRepo.ReplaceForExam(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("questions", len(questions)).
		Msg("Questions replaced")
	return questions, nil
}

// ListQuestions returns an exam's full questions, keys included. Owner only.
func (s *ExamService) ListQuestions(ctx context.Context, examID uuid.UUID, teacherID int) ([]model.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// Activate moves a draft exam to aktif and warms its paper cache.
func (s *ExamService) Activate(ctx context.Context, examID uuid.UUID, teacherID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.TeacherID != teacherID {
		return ErrNotExamOwner
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmPaperCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusAktif); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam activated")
	return nil
}

// Archive moves an exam to arsip and drops its paper cache.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID, teacherID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return ErrNotExamOwner
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArsip); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop paper cache")
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam archived")
	return nil
}

// WarmPaperCache builds the key-stripped paper for an exam and stores it in
// Redis. Used by Activate and PrewarmAllCaches.
func (s *ExamService) WarmPaperCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	paper, err := buildPaper(exam, questions)
	if err != nil {
		return err
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.ExamPaperKey(exam.ID.String()), paperJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Paper cache warmed")
	return nil
}

// buildPaper strips every answer key out of the questions and assembles the
// student-facing paper.
func buildPaper(exam *model.Exam, questions []model.Question) (*model.ExamPaper, error) {
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		stripped, err := scoring.StudentView(q.Tipe, q.Payload)
		if err != nil {
			return nil, fmt.Errorf("strip question %s: %w", q.ID, err)
		}
		studentQuestions[i] = model.QuestionForStudent{
			ID:         q.ID,
			Tipe:       q.Tipe,
			Pertanyaan: q.Pertanyaan,
			Poin:       q.Poin,
			Payload:    stripped,
			Urutan:     q.Urutan,
		}
	}

	return &model.ExamPaper{
		ExamID:    exam.ID,
		Judul:     exam.Judul,
		CloseAt:   exam.CloseAt,
		AcakSoal:  exam.AcakSoal,
		Questions: studentQuestions,
	}, nil
}

// GetPaper returns the key-stripped paper for an exam, Redis first with a
// database fallback that re-heals the cache.
func (s *ExamService) GetPaper(ctx context.Context, exam *model.Exam) (*model.ExamPaper, error) {
	cached, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(exam.ID.String())).Bytes()
	if err == nil {
		paper := &model.ExamPaper{}
		if err := json.Unmarshal(cached, paper); err == nil {
			return paper, nil
		}
		s.log.Warn().Str("exam_id", exam.ID.String()).Msg("Corrupt paper cache, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Paper cache read failed, falling back to database")
	}

	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	paper, err := buildPaper(exam, questions)
	if err != nil {
		return nil, err
	}

	if warmErr := s.WarmPaperCache(ctx, exam); warmErr != nil {
		s.log.Warn().Err(warmErr).Str("exam_id", exam.ID.String()).Msg("Failed to re-warm paper cache")
	}
	return paper, nil
}

// PrewarmAllCaches loads every aktif exam's paper into Redis on application
// startup so first-student traffic never hits PostgreSQL for papers.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListAktif(ctx)
	if err != nil {
		return fmt.Errorf("list aktif exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No aktif exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming aktif exam papers...")

	warmed := 0
	for i := range exams {
		if err := s.WarmPaperCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// Results lists the per-student results of an exam for its owner.
func (s *ExamService) Results(ctx context.Context, examID uuid.UUID, teacherID, page, perPage int, className *string) ([]repository.ExamResult, *response.Pagination, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, nil, ErrNotExamOwner
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := s.subRepo.ListByExam(ctx, examID, page, perPage, className)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []repository.ExamResult{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}
	return results, pagination, nil
}
