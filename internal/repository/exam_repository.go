package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujianku/ujianku-backend/internal/model"
)

const examColumns = `id, school_id, teacher_id, subject_id, judul, target_classes,
	open_at, close_at, acak_soal, tampilkan_nilai, status, created_at, updated_at`

// ExamFilter holds the optional predicates for teacher-side exam listing.
// Nil fields are omitted from the generated query.
type ExamFilter struct {
	TeacherID *int
	SubjectID *int
	Status    *model.ExamStatus
}

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row rowScanner, e *model.Exam) error {
	return row.Scan(&e.ID, &e.SchoolID, &e.TeacherID, &e.SubjectID, &e.Judul, &e.TargetClasses,
		&e.OpenAt, &e.CloseAt, &e.AcakSoal, &e.TampilkanNilai, &e.Status, &e.CreatedAt, &e.UpdatedAt)
}

// rowScanner is the minimal scan interface shared by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
	if err := scanExam(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEligible returns the active exams visible to a student: same school,
// status aktif, and the student's class name among the exam's targets.
// One parameterized query; eligibility never branches into per-case SQL.
func (r *ExamRepository) ListEligible(ctx context.Context, schoolID int, className string) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams
		 WHERE school_id = $1
		   AND status = $2
		   AND $3 = ANY(target_classes)
		 ORDER BY open_at ASC`,
		schoolID, model.ExamStatusAktif, className,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ListBySchoolPaginated retrieves a school's exams with optional filters and
// pagination. Filters append positional predicates to a single base query.
func (r *ExamRepository) ListBySchoolPaginated(ctx context.Context, schoolID, page, perPage int, filter ExamFilter) ([]model.Exam, int, error) {
	offset := (page - 1) * perPage

	baseQuery := ` FROM exams WHERE school_id = $1`
	args := []any{schoolID}

	if filter.TeacherID != nil {
		args = append(args, *filter.TeacherID)
		baseQuery += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		baseQuery += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListAktif returns all exams with aktif status.
// Used for paper-cache prewarming on application startup.
func (r *ExamRepository) ListAktif(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE status = $1 ORDER BY created_at DESC`,
		model.ExamStatusAktif,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (school_id, teacher_id, subject_id, judul, target_classes,
		                    open_at, close_at, acak_soal, tampilkan_nilai, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		e.SchoolID, e.TeacherID, e.SubjectID, e.Judul, e.TargetClasses,
		e.OpenAt, e.CloseAt, e.AcakSoal, e.TampilkanNilai, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}
