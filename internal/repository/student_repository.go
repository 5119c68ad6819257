package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujianku/ujianku-backend/internal/model"
)

const studentColumns = `st.id, st.nisn, st.name, st.school_id, c.name, st.password_hash, st.created_at, st.updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByNISN retrieves a student by their NISN, with the class name resolved.
func (r *StudentRepository) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+`
		 FROM students st
		 JOIN classes c ON st.class_id = c.id
		 WHERE st.nisn = $1`, nisn,
	).Scan(&s.ID, &s.NISN, &s.Name, &s.SchoolID, &s.ClassName, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID, with the class name resolved.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+`
		 FROM students st
		 JOIN classes c ON st.class_id = c.id
		 WHERE st.id = $1`, id,
	).Scan(&s.ID, &s.NISN, &s.Name, &s.SchoolID, &s.ClassName, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
