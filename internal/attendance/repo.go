package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/roster"
)

// Event is one persisted attendance transition for a student.
type Event struct {
	ID         string        `json:"id"`
	StudentID  string        `json:"student_id"`
	Status     roster.Status `json:"status"`
	Date       string        `json:"date"`
	TimeIn     string        `json:"time_in"`
	RecordedAt time.Time     `json:"recorded_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Summary is the read-only daily view: who is present and who is absent.
// Late counts as present for this view; Unset entries never reach the log.
type Summary struct {
	Present []Event `json:"present"`
	Absent  []Event `json:"absent"`
}

// Repository persists the attendance event log in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEvent appends a transition to the log.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.RecordedAt.IsZero() {
		evt.RecordedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (id, student_id, status, day, time_in, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, evt.ID, evt.StudentID, string(evt.Status), evt.Date, evt.TimeIn, evt.RecordedAt)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, status, day, time_in, recorded_at, created_at
		FROM attendance_events WHERE id = $1
	`, id)
	var evt Event
	if err := row.Scan(&evt.ID, &evt.StudentID, &evt.Status, &evt.Date, &evt.TimeIn, &evt.RecordedAt, &evt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return evt, nil
}

// ListEvents returns events with basic filters.
func (r *Repository) ListEvents(ctx context.Context, studentID, status string, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, student_id, status, day, time_in, recorded_at, created_at FROM attendance_events`
	args := []any{}
	clauses := []string{}
	if studentID != "" {
		clauses = append(clauses, "student_id = $"+itoa(len(args)+1))
		args = append(args, studentID)
	}
	if status != "" {
		clauses = append(clauses, "status = $"+itoa(len(args)+1))
		args = append(args, status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY recorded_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Status, &evt.Date, &evt.TimeIn, &evt.RecordedAt, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// Summary returns the latest event per student for a day, split into
// present (Present or Late) and absent buckets.
func (r *Repository) Summary(ctx context.Context, day string) (Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (student_id)
			id, student_id, status, day, time_in, recorded_at, created_at
		FROM attendance_events
		WHERE day = $1
		ORDER BY student_id, recorded_at DESC
	`, day)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	sum := Summary{Present: []Event{}, Absent: []Event{}}
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Status, &evt.Date, &evt.TimeIn, &evt.RecordedAt, &evt.CreatedAt); err != nil {
			return Summary{}, err
		}
		switch evt.Status {
		case roster.StatusAbsent:
			sum.Absent = append(sum.Absent, evt)
		default:
			sum.Present = append(sum.Present, evt)
		}
	}
	return sum, rows.Err()
}

// ErrNotFound reports a missing event.
var ErrNotFound = errors.New("event not found")

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
