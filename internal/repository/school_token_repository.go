package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujianku/ujianku-backend/internal/model"
)

// SchoolTokenRepository handles read access to per-school exam entry tokens.
// Token rotation is an administrative concern outside this service; only
// lookups live here.
type SchoolTokenRepository struct {
	pool *pgxpool.Pool
}

// NewSchoolTokenRepository creates a new SchoolTokenRepository.
func NewSchoolTokenRepository(pool *pgxpool.Pool) *SchoolTokenRepository {
	return &SchoolTokenRepository{pool: pool}
}

// GetBySchool retrieves the token record for a school. Returns pgx.ErrNoRows
// when the school has never configured a token.
func (r *SchoolTokenRepository) GetBySchool(ctx context.Context, schoolID int) (*model.SchoolExamToken, error) {
	t := &model.SchoolExamToken{}
	err := r.pool.QueryRow(ctx,
		`SELECT school_id, token, active, expires_at, updated_at
		 FROM school_exam_tokens
		 WHERE school_id = $1`, schoolID,
	).Scan(&t.SchoolID, &t.Token, &t.Active, &t.ExpiresAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
