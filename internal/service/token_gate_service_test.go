package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ujianku/ujianku-backend/internal/model"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestCheckToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		rec      model.SchoolExamToken
		supplied string
		want     error
	}{
		{
			name:     "valid token",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true},
			supplied: "UJIAN24",
			want:     nil,
		},
		{
			name:     "token matches case-insensitively",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true},
			supplied: "ujian24",
			want:     nil,
		},
		{
			name:     "valid with future expiry",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true, ExpiresAt: timePtr(now.Add(time.Hour))},
			supplied: "UJIAN24",
			want:     nil,
		},
		{
			name:     "inactive token",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: false},
			supplied: "UJIAN24",
			want:     ErrTokenInactive,
		},
		{
			name:     "inactive beats mismatch",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: false},
			supplied: "SALAH",
			want:     ErrTokenInactive,
		},
		{
			name:     "wrong token",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true},
			supplied: "SALAH",
			want:     ErrTokenMismatch,
		},
		{
			name:     "expired token",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true, ExpiresAt: timePtr(now.Add(-time.Minute))},
			supplied: "UJIAN24",
			want:     ErrTokenExpired,
		},
		{
			name:     "mismatch reported before expiry",
			rec:      model.SchoolExamToken{Token: "UJIAN24", Active: true, ExpiresAt: timePtr(now.Add(-time.Minute))},
			supplied: "SALAH",
			want:     ErrTokenMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := checkToken(&tc.rec, tc.supplied, now)
			if !errors.Is(got, tc.want) {
				t.Fatalf("checkToken() = %v, want %v", got, tc.want)
			}
		})
	}
}
