package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujianku/ujianku-backend/internal/model"
)

// ExamResult combines student data with their submission for one exam.
type ExamResult struct {
	StudentID   int        `json:"student_id"`
	Name        string     `json:"name"`
	NISN        string     `json:"nisn"`
	ClassName   string     `json:"class_name"`
	Nilai       *int       `json:"nilai"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// SubmissionRepository handles submission and answer data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetOrCreate returns the submission for (exam, student), creating it with
// startedAt = NOW() if none exists. Safe under concurrent first-answer races:
// the unique constraint on (exam_id, student_id) plus the conflict fallback
// guarantees a single row per pair.
func (r *SubmissionRepository) GetOrCreate(ctx context.Context, examID uuid.UUID, studentID int) (*model.Submission, error) {
	s := &model.Submission{ExamID: examID, StudentID: studentID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_id)
		 VALUES ($1, $2)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, started_at, submitted_at, nilai`,
		examID, studentID,
	).Scan(&s.ID, &s.StartedAt, &s.SubmittedAt, &s.Nilai)
	if errors.Is(err, pgx.ErrNoRows) {
		// Concurrent create won the race; read the existing row.
		return r.GetByExamAndStudent(ctx, examID, studentID)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByExamAndStudent retrieves the submission for an exam-student pair.
func (r *SubmissionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, submitted_at, nilai
		 FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.SubmittedAt, &s.Nilai)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a submission by its UUID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, submitted_at, nilai
		 FROM submissions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.SubmittedAt, &s.Nilai)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByStudent retrieves all submissions for a given student.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, started_at, submitted_at, nilai
		 FROM submissions
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.SubmittedAt, &s.Nilai); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// UpsertAnswer inserts or overwrites the answer for (submission, question),
// but only while the submission is still open. Returns the number of rows
// written; 0 means the submission is missing or already submitted and the
// caller must classify which.
func (r *SubmissionRepository) UpsertAnswer(ctx context.Context, submissionID, questionID uuid.UUID, jawaban json.RawMessage) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answers (submission_id, question_id, jawaban)
		 SELECT s.id, $2, $3
		 FROM submissions s
		 WHERE s.id = $1 AND s.submitted_at IS NULL
		 ON CONFLICT (submission_id, question_id) DO UPDATE
		 SET jawaban = EXCLUDED.jawaban, updated_at = NOW()`,
		submissionID, questionID, jawaban,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListAnswers retrieves all answers for a submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, question_id, jawaban, nilai, is_correct, feedback, updated_at
		 FROM answers
		 WHERE submission_id = $1`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.Jawaban, &a.Nilai, &a.IsCorrect, &a.Feedback, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// BulkUpdateAnswerScores writes the per-answer verdicts computed during
// finalization in a single UNNEST statement. Guarded on submitted_at IS NULL
// so a submit call that lost the close race cannot mutate a locked
// submission's answers.
func (r *SubmissionRepository) BulkUpdateAnswerScores(ctx context.Context, submissionID uuid.UUID, questionIDs []uuid.UUID, nilais []int, corrects []bool) error {
	if len(questionIDs) == 0 {
		return nil
	}
	if len(nilais) != len(questionIDs) || len(corrects) != len(questionIDs) {
		return fmt.Errorf("score arrays length mismatch: %d/%d/%d", len(questionIDs), len(nilais), len(corrects))
	}

	query := `
		UPDATE answers AS a
		SET nilai = t.nilai,
		    is_correct = t.is_correct,
		    updated_at = NOW()
		FROM (
			SELECT u.question_id, u.nilai, u.is_correct
			FROM UNNEST(
				$2::uuid[],
				$3::int[],
				$4::bool[]
			) AS u (question_id, nilai, is_correct)
		) AS t
		WHERE a.submission_id = $1
		  AND a.question_id = t.question_id
		  AND EXISTS (
			SELECT 1 FROM submissions s
			WHERE s.id = a.submission_id AND s.submitted_at IS NULL
		  )
	`

	_, err := r.pool.Exec(ctx, query, submissionID, questionIDs, nilais, corrects)
	return err
}

// Finalize performs the open→closed transition: sets submitted_at and the
// final score, but only if the submission is still open. Returns false when
// another submit already closed it (at-most-once guarantee).
func (r *SubmissionRepository) Finalize(ctx context.Context, submissionID uuid.UUID, nilai int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET submitted_at = NOW(), nilai = $2
		 WHERE id = $1 AND submitted_at IS NULL`,
		submissionID, nilai,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateEssayGrade writes a teacher's manual verdict and feedback onto an
// essay answer of a closed submission.
func (r *SubmissionRepository) UpdateEssayGrade(ctx context.Context, submissionID, questionID uuid.UUID, nilai int, isCorrect *bool, feedback string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE answers
		 SET nilai = $3, is_correct = $4, feedback = $5, updated_at = NOW()
		 WHERE submission_id = $1 AND question_id = $2`,
		submissionID, questionID, nilai, isCorrect, feedback,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateNilai overwrites the final score of an already-closed submission.
// Used after essay grading to fold manual points into the total.
func (r *SubmissionRepository) UpdateNilai(ctx context.Context, submissionID uuid.UUID, nilai int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET nilai = $2
		 WHERE id = $1 AND submitted_at IS NOT NULL`,
		submissionID, nilai,
	)
	return err
}

// ListByExam retrieves all student results for a specific exam, with an
// optional class-name filter and pagination.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int, className *string) ([]ExamResult, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM submissions sub
		JOIN students st ON sub.student_id = st.id
		JOIN classes c ON st.class_id = c.id
		WHERE sub.exam_id = $1
	`
	args := []any{examID}

	if className != nil && *className != "" {
		args = append(args, *className)
		baseQuery += fmt.Sprintf(" AND c.name = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT st.id, st.name, st.nisn, c.name,
		       sub.nilai, sub.started_at, sub.submitted_at
		` + baseQuery + `
		ORDER BY c.name ASC, st.name ASC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []ExamResult
	for rows.Next() {
		var res ExamResult
		if err := rows.Scan(&res.StudentID, &res.Name, &res.NISN, &res.ClassName,
			&res.Nilai, &res.StartedAt, &res.SubmittedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
