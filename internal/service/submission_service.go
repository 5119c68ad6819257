package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ujianku/ujianku-backend/internal/config"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/repository"
	"github.com/ujianku/ujianku-backend/internal/scoring"
)

// Domain Errors
var (
	ErrExamNotEligible   = errors.New("exam is not available for this student")
	ErrExamNotOpenYet    = errors.New("exam window has not opened yet")
	ErrExamClosed        = errors.New("exam window is already closed")
	ErrAttemptNotStarted = errors.New("no attempt exists for this exam")
	ErrAlreadySubmitted  = errors.New("submission is already closed")
	ErrNotSubmitted      = errors.New("submission has not been submitted yet")
	ErrQuestionNotInExam = errors.New("question does not belong to this exam")
	ErrNotEssayQuestion  = errors.New("question is not an essay question")
	ErrGradeExceedsPoin  = errors.New("grade exceeds the question's point value")
)

// AttemptState is what a reconnecting client needs to resume an open attempt:
// the countdown plus every answer saved so far, keyed by question id.
type AttemptState struct {
	model.TimeRemaining
	Answers map[string]json.RawMessage `json:"answers"`
}

// AnswerResult is the per-question verdict line of a submitted attempt.
type AnswerResult struct {
	QuestionID uuid.UUID          `json:"question_id"`
	Tipe       model.QuestionType `json:"tipe"`
	Pertanyaan string             `json:"pertanyaan"`
	Poin       int                `json:"poin"`
	Jawaban    json.RawMessage    `json:"jawaban,omitempty"`
	Nilai      *int               `json:"nilai,omitempty"`
	IsCorrect  *bool              `json:"is_correct,omitempty"`
	Feedback   *string            `json:"feedback,omitempty"`
}

// AttemptResult is the full result detail of a submitted attempt.
type AttemptResult struct {
	ExamID      uuid.UUID      `json:"exam_id"`
	Judul       string         `json:"judul"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	Nilai       *int           `json:"nilai,omitempty"`
	Answers     []AnswerResult `json:"answers"`
}

// SubmissionService handles the exam attempt lifecycle: start, autosave,
// state reload, finalize, and essay grading.
type SubmissionService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	subRepo      *repository.SubmissionRepository
	tokenGate    *TokenGateService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	subRepo *repository.SubmissionRepository,
	tokenGate *TokenGateService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		subRepo:      subRepo,
		tokenGate:    tokenGate,
		rdb:          rdb,
		log:          log.With().Str("component", "submission_service").Logger(),
	}
}

// loadEligibleExam fetches an exam and verifies the student may see it at
// all: same school, status aktif, student's class among the targets.
func (s *SubmissionService) loadEligibleExam(ctx context.Context, examID uuid.UUID, schoolID int, className string) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if exam.SchoolID != schoolID || exam.Status != model.ExamStatusAktif {
		return nil, ErrExamNotEligible
	}
	eligible := false
	for _, c := range exam.TargetClasses {
		if c == className {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, ErrExamNotEligible
	}
	return exam, nil
}

// StartAttempt validates the school exam token and the exam window, then
// returns the student's submission, creating it if this is the first start.
// Idempotent for an open attempt; a closed attempt fails with
// ErrAlreadySubmitted.
func (s *SubmissionService) StartAttempt(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className, token string) (*model.Submission, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.Before(exam.OpenAt) {
		return nil, ErrExamNotOpenYet
	}
	if now.After(exam.CloseAt) {
		return nil, ErrExamClosed
	}

	if err := s.tokenGate.Validate(ctx, schoolID, token); err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetOrCreate(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get or create submission: %w", err)
	}
	if sub.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Str("submission_id", sub.ID.String()).
		Msg("Attempt started")
	return sub, nil
}

// VerifyOpenAttempt checks that a student holds an open attempt on an
// eligible exam whose window is currently open, and returns the exam.
// Used before handing out the paper.
func (s *SubmissionService) VerifyOpenAttempt(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string) (*model.Exam, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.Before(exam.OpenAt) {
		return nil, ErrExamNotOpenYet
	}
	if now.After(exam.CloseAt) {
		return nil, ErrExamClosed
	}

	sub, err := s.subRepo.GetByExamAndStudent(ctx, examID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}
	return exam, nil
}

// SaveAnswer autosaves one answer onto an open attempt. The raw answer is
// normalized into the canonical envelope before storage. Fails with
// ErrAlreadySubmitted once the submission is closed; the answer row is then
// left untouched.
func (s *SubmissionService) SaveAnswer(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string, req *model.SaveAnswerRequest) error {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return err
	}

	now := time.Now()
	if now.Before(exam.OpenAt) {
		return ErrExamNotOpenYet
	}
	if now.After(exam.CloseAt) {
		return ErrExamClosed
	}

	sub, err := s.subRepo.GetByExamAndStudent(ctx, examID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAttemptNotStarted
	}
	if err != nil {
		return fmt.Errorf("get submission: %w", err)
	}
	if sub.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return fmt.Errorf("parse question id: %w", err)
	}
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrQuestionNotInExam
	}
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != examID {
		return ErrQuestionNotInExam
	}

	normalized, err := scoring.Normalize(req.Jawaban)
	if err != nil {
		return fmt.Errorf("normalize answer: %w", err)
	}

	rows, err := s.subRepo.UpsertAnswer(ctx, sub.ID, questionID, normalized)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	if rows == 0 {
		// The guard in the write refused: a concurrent submit closed the
		// attempt between our read and the write.
		return ErrAlreadySubmitted
	}

	// Mirror into Redis so state reloads skip PostgreSQL. Best effort.
	answersKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID)
	if err := s.rdb.HSet(ctx, answersKey, questionID.String(), string(normalized)).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Int("student_id", studentID).Msg("Failed to mirror answer to cache")
	}
	return nil
}

// State returns the countdown and every autosaved answer for an attempt.
// Answers come from the Redis mirror; a cache miss falls back to PostgreSQL
// and re-heals the mirror.
func (s *SubmissionService) State(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string) (*AttemptState, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	state := &AttemptState{Answers: map[string]json.RawMessage{}}

	sub, err := s.subRepo.GetByExamAndStudent(ctx, examID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		state.TimeRemaining = remainingIn(exam, nil, time.Now())
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	state.TimeRemaining = remainingIn(exam, sub, time.Now())
	if sub.SubmittedAt != nil {
		return state, nil
	}

	answersKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID)
	cached, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Answer cache read failed, falling back to database")
	}
	if len(cached) > 0 {
		for qid, raw := range cached {
			state.Answers[qid] = json.RawMessage(raw)
		}
		return state, nil
	}

	answers, err := s.subRepo.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if len(answers) == 0 {
		return state, nil
	}

	heal := make(map[string]string, len(answers))
	for _, a := range answers {
		state.Answers[a.QuestionID.String()] = a.Jawaban
		heal[a.QuestionID.String()] = string(a.Jawaban)
	}
	if err := s.rdb.HSet(ctx, answersKey, heal).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to re-heal answer cache")
	}
	return state, nil
}

// TimeRemaining reports the seconds left in the exam's absolute window, not
// a per-student timer.
func (s *SubmissionService) TimeRemaining(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string) (*model.TimeRemaining, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	tr := remainingIn(exam, sub, time.Now())
	return &tr, nil
}

// remainingIn computes the countdown against the exam's close timestamp.
// sub may be nil when the student never started.
func remainingIn(exam *model.Exam, sub *model.Submission, now time.Time) model.TimeRemaining {
	if sub != nil && sub.SubmittedAt != nil {
		return model.TimeRemaining{AlreadySubmitted: true}
	}

	remaining := int64(exam.CloseAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return model.TimeRemaining{
		RemainingSeconds: remaining,
		NotStarted:       sub == nil,
	}
}

// Submit finalizes an attempt: persists the final answer batch, scores every
// non-essay question, writes verdicts and the normalized score, and closes
// the submission. At most one concurrent Submit wins; the rest get
// ErrAlreadySubmitted. The returned submission withholds the score when the
// exam's tampilkan_nilai flag is off.
func (s *SubmissionService) Submit(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string, req *model.SubmitExamRequest) (*model.Submission, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetOrCreate(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get or create submission: %w", err)
	}
	if sub.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}

	// Persist the final batch. Answers autosaved earlier are simply
	// overwritten with the same value.
	for _, ans := range req.Answers {
		questionID, err := uuid.Parse(ans.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("parse question id %q: %w", ans.QuestionID, err)
		}
		normalized, err := scoring.Normalize(ans.Jawaban)
		if err != nil {
			return nil, fmt.Errorf("normalize answer for %s: %w", ans.QuestionID, err)
		}
		rows, err := s.subRepo.UpsertAnswer(ctx, sub.ID, questionID, normalized)
		if err != nil {
			return nil, fmt.Errorf("upsert answer: %w", err)
		}
		if rows == 0 {
			return nil, ErrAlreadySubmitted
		}
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.subRepo.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	outcome := gradeSubmission(questions, answers)
	for _, qid := range outcome.Skipped {
		s.log.Warn().
			Str("submission_id", sub.ID.String()).
			Str("question_id", qid.String()).
			Msg("Scoring failed for question, contributes zero")
	}

	if err := s.subRepo.BulkUpdateAnswerScores(ctx, sub.ID, outcome.QuestionIDs, outcome.Nilais, outcome.Corrects); err != nil {
		return nil, fmt.Errorf("write answer scores: %w", err)
	}

	won, err := s.subRepo.Finalize(ctx, sub.ID, outcome.FinalScore)
	if err != nil {
		return nil, fmt.Errorf("finalize submission: %w", err)
	}
	if !won {
		return nil, ErrAlreadySubmitted
	}

	if err := s.rdb.Del(ctx, config.CacheKey.StudentAnswersKey(examID.String(), studentID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Int("student_id", studentID).Msg("Failed to drop answer cache")
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Int("final_score", outcome.FinalScore).
		Int("total_poin", outcome.TotalPoin).
		Msg("Submission finalized")

	final, err := s.subRepo.GetByID(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("reload submission: %w", err)
	}
	if !exam.TampilkanNilai {
		final.Nilai = nil
	}
	return final, nil
}

// gradeOutcome is the aggregate of grading one submission.
type gradeOutcome struct {
	QuestionIDs []uuid.UUID
	Nilais      []int
	Corrects    []bool
	Skipped     []uuid.UUID
	TotalPoin   int
	TotalNilai  int
	FinalScore  int
}

// gradeSubmission scores every answered non-essay question and aggregates
// the normalized 0-100 score. Pure computation. Unanswered questions and
// essays contribute zero but their poin stays in the denominator; a question
// whose key or answer cannot be scored is skipped the same way instead of
// failing the whole submission.
func gradeSubmission(questions []model.Question, answers []model.Answer) gradeOutcome {
	answerMap := make(map[uuid.UUID]*model.Answer, len(answers))
	for i := range answers {
		answerMap[answers[i].QuestionID] = &answers[i]
	}

	var out gradeOutcome
	for _, q := range questions {
		out.TotalPoin += q.Poin

		if q.Tipe == model.QuestionTypeEssay {
			continue
		}
		ans, ok := answerMap[q.ID]
		if !ok {
			continue
		}

		result, err := scoring.Score(scoring.Input{
			Tipe:    q.Tipe,
			Poin:    q.Poin,
			Payload: q.Payload,
			Jawaban: ans.Jawaban,
		})
		if err != nil {
			out.Skipped = append(out.Skipped, q.ID)
			continue
		}

		out.QuestionIDs = append(out.QuestionIDs, q.ID)
		out.Nilais = append(out.Nilais, result.Nilai)
		out.Corrects = append(out.Corrects, result.IsCorrect != nil && *result.IsCorrect)
		out.TotalNilai += result.Nilai
	}

	if out.TotalPoin > 0 {
		out.FinalScore = int(math.Round(100 * float64(out.TotalNilai) / float64(out.TotalPoin)))
	}
	return out
}

// Result returns the full result detail of a submitted attempt. Verdicts
// and scores are withheld while the exam's tampilkan_nilai flag is off;
// essay feedback is always shown.
func (s *SubmissionService) Result(ctx context.Context, examID uuid.UUID, studentID, schoolID int, className string) (*AttemptResult, error) {
	exam, err := s.loadEligibleExam(ctx, examID, schoolID, className)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetByExamAndStudent(ctx, examID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.SubmittedAt == nil {
		return nil, ErrNotSubmitted
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.subRepo.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answerMap := make(map[uuid.UUID]*model.Answer, len(answers))
	for i := range answers {
		answerMap[answers[i].QuestionID] = &answers[i]
	}

	result := &AttemptResult{
		ExamID:      examID,
		Judul:       exam.Judul,
		SubmittedAt: sub.SubmittedAt,
		Answers:     make([]AnswerResult, 0, len(questions)),
	}
	if exam.TampilkanNilai {
		result.Nilai = sub.Nilai
	}

	for _, q := range questions {
		line := AnswerResult{
			QuestionID: q.ID,
			Tipe:       q.Tipe,
			Pertanyaan: q.Pertanyaan,
			Poin:       q.Poin,
		}
		if ans, ok := answerMap[q.ID]; ok {
			line.Jawaban = ans.Jawaban
			line.Feedback = ans.Feedback
			if exam.TampilkanNilai {
				line.Nilai = ans.Nilai
				line.IsCorrect = ans.IsCorrect
			}
		}
		result.Answers = append(result.Answers, line)
	}
	return result, nil
}

// GradeEssay writes a teacher's manual verdict onto an essay answer of a
// closed submission, then folds the points into the final score.
func (s *SubmissionService) GradeEssay(ctx context.Context, examID, submissionID, questionID uuid.UUID, teacherID int, req *model.GradeEssayRequest) (*model.Submission, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}

	sub, err := s.subRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.ExamID != examID {
		return nil, ErrQuestionNotInExam
	}
	if sub.SubmittedAt == nil {
		return nil, ErrNotSubmitted
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != examID {
		return nil, ErrQuestionNotInExam
	}
	if question.Tipe != model.QuestionTypeEssay {
		return nil, ErrNotEssayQuestion
	}
	if req.Nilai > question.Poin {
		return nil, ErrGradeExceedsPoin
	}

	if err := s.subRepo.UpdateEssayGrade(ctx, submissionID, questionID, req.Nilai, nil, req.Feedback); err != nil {
		return nil, fmt.Errorf("update essay grade: %w", err)
	}

	// Recompute the normalized score with the manual points folded in.
	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.subRepo.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	totalPoin := 0
	for _, q := range questions {
		totalPoin += q.Poin
	}
	totalNilai := 0
	for _, a := range answers {
		if a.Nilai != nil {
			totalNilai += *a.Nilai
		}
	}
	finalScore := 0
	if totalPoin > 0 {
		finalScore = int(math.Round(100 * float64(totalNilai) / float64(totalPoin)))
	}

	if err := s.subRepo.UpdateNilai(ctx, submissionID, finalScore); err != nil {
		return nil, fmt.Errorf("update final score: %w", err)
	}

	s.log.Info().
		Str("submission_id", submissionID.String()).
		Str("question_id", questionID.String()).
		Int("nilai", req.Nilai).
		Int("final_score", finalScore).
		Msg("Essay graded")

	return s.subRepo.GetByID(ctx, submissionID)
}
