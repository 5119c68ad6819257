package service

import (
	"testing"
	"time"

	"github.com/ujianku/ujianku-backend/internal/model"
)

func TestResolveExamStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	open := now.Add(-time.Hour)
	closeAt := now.Add(time.Hour)
	submittedAt := now.Add(-10 * time.Minute)

	tests := []struct {
		name string
		exam model.Exam
		sub  *model.Submission
		want StudentExamStatus
	}{
		{
			name: "before window",
			exam: model.Exam{OpenAt: now.Add(time.Hour), CloseAt: now.Add(2 * time.Hour)},
			want: StatusBelumDibuka,
		},
		{
			name: "inside window",
			exam: model.Exam{OpenAt: open, CloseAt: closeAt},
			want: StatusSedangBerlangsung,
		},
		{
			name: "after window",
			exam: model.Exam{OpenAt: now.Add(-2 * time.Hour), CloseAt: now.Add(-time.Hour)},
			want: StatusDitutup,
		},
		{
			name: "open attempt does not change window status",
			exam: model.Exam{OpenAt: open, CloseAt: closeAt},
			sub:  &model.Submission{},
			want: StatusSedangBerlangsung,
		},
		{
			name: "submitted wins inside window",
			exam: model.Exam{OpenAt: open, CloseAt: closeAt},
			sub:  &model.Submission{SubmittedAt: &submittedAt},
			want: StatusSudahDikumpulkan,
		},
		{
			name: "submitted wins after close",
			exam: model.Exam{OpenAt: now.Add(-3 * time.Hour), CloseAt: now.Add(-2 * time.Hour)},
			sub:  &model.Submission{SubmittedAt: &submittedAt},
			want: StatusSudahDikumpulkan,
		},
		{
			name: "submitted wins before open",
			exam: model.Exam{OpenAt: now.Add(time.Hour), CloseAt: now.Add(2 * time.Hour)},
			sub:  &model.Submission{SubmittedAt: &submittedAt},
			want: StatusSudahDikumpulkan,
		},
		{
			name: "boundary open instant is in progress",
			exam: model.Exam{OpenAt: now, CloseAt: closeAt},
			want: StatusSedangBerlangsung,
		},
		{
			name: "boundary close instant is in progress",
			exam: model.Exam{OpenAt: open, CloseAt: now},
			want: StatusSedangBerlangsung,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveExamStatus(&tc.exam, tc.sub, now)
			if got != tc.want {
				t.Fatalf("resolveExamStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}
