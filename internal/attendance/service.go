package attendance

import (
	"context"
	"errors"
	"time"

	"rollcall/internal/roster"
)

// Service validates and persists roster transitions consumed off the queue.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record persists one transition as an attendance event.
func (s *Service) Record(ctx context.Context, tr roster.Transition) (Event, error) {
	if tr.StudentID == "" {
		return Event{}, errors.New("student id required")
	}
	switch tr.Status {
	case roster.StatusPresent, roster.StatusAbsent, roster.StatusLate:
	default:
		// Unset is a display placeholder and never a persisted end state.
		return Event{}, errors.New("status not recordable")
	}

	at := tr.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.repo.InsertEvent(ctx, Event{
		StudentID:  tr.StudentID,
		Status:     tr.Status,
		Date:       tr.Date,
		TimeIn:     tr.TimeIn,
		RecordedAt: at,
	})
}

// DaySummary returns the present/absent split for a day.
func (s *Service) DaySummary(ctx context.Context, day string) (Summary, error) {
	if day == "" {
		return Summary{}, errors.New("day required")
	}
	return s.repo.Summary(ctx, day)
}
