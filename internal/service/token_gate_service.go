package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/repository"
)

// Token gate failures, one per reason so handlers can surface an actionable
// message.
var (
	ErrTokenNotConfigured = errors.New("school has no exam token configured")
	ErrTokenInactive      = errors.New("school exam token is not active")
	ErrTokenMismatch      = errors.New("supplied exam token does not match")
	ErrTokenExpired       = errors.New("school exam token has expired")
)

// TokenGateService validates the shared classroom entry token before a
// student may begin an attempt. Check-only: rotation belongs to the admin
// tooling, never to this service.
type TokenGateService struct {
	tokenRepo *repository.SchoolTokenRepository
}

// NewTokenGateService creates a new TokenGateService.
func NewTokenGateService(tokenRepo *repository.SchoolTokenRepository) *TokenGateService {
	return &TokenGateService{tokenRepo: tokenRepo}
}

// Validate checks the supplied token against the school's current record.
func (s *TokenGateService) Validate(ctx context.Context, schoolID int, supplied string) error {
	rec, err := s.tokenRepo.GetBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotConfigured
		}
		return fmt.Errorf("get school token: %w", err)
	}
	return checkToken(rec, supplied, time.Now())
}

// checkToken applies the gate rules to an already-fetched record. Expiry is
// compared in the school's naive local-time space, like the exam window.
func checkToken(rec *model.SchoolExamToken, supplied string, now time.Time) error {
	if !rec.Active {
		return ErrTokenInactive
	}
	if !strings.EqualFold(rec.Token, supplied) {
		return ErrTokenMismatch
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) {
		return ErrTokenExpired
	}
	return nil
}
