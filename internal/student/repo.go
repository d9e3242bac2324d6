package student

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound reports a missing student row.
var ErrNotFound = errors.New("student not found")

// Student is a directory row. Optional columns are pointers so partial
// upstream records round-trip without inventing values.
type Student struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	MiddleName     *string   `json:"middle_name,omitempty"`
	LastName       string    `json:"last_name"`
	RollNumber     *string   `json:"roll_number,omitempty"`
	RegistrationNo *string   `json:"student_registration_no,omitempty"`
	Grade          *string   `json:"grade,omitempty"`
	Section        *string   `json:"section,omitempty"`
	Email          *string   `json:"email,omitempty"`
	MobileNumber   *string   `json:"mobile_number,omitempty"`
	AdmissionNo    *string   `json:"admission_no,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository persists the student directory in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, first_name, middle_name, last_name, roll_number,
	registration_no, grade, section, email, mobile_number, admission_no, created_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.FirstName, &s.MiddleName, &s.LastName, &s.RollNumber,
		&s.RegistrationNo, &s.Grade, &s.Section, &s.Email, &s.MobileNumber, &s.AdmissionNo, &s.CreatedAt)
	return s, err
}

// List returns all students ordered by roll number.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		ORDER BY roll_number NULLS LAST, last_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Get returns a single student by id.
func (r *Repository) Get(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM students WHERE id = $1
	`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return s, err
}

// Insert creates a student and returns the stored row.
func (r *Repository) Insert(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, first_name, middle_name, last_name, roll_number,
			registration_no, grade, section, email, mobile_number, admission_no)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text),
			$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`, s.ID, s.FirstName, s.MiddleName, s.LastName, s.RollNumber,
		s.RegistrationNo, s.Grade, s.Section, s.Email, s.MobileNumber, s.AdmissionNo)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// Update overwrites the mutable contact fields of a student.
func (r *Repository) Update(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET first_name = $2, last_name = $3, email = $4, mobile_number = $5,
			grade = $6, section = $7, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.FirstName, s.LastName, s.Email, s.MobileNumber, s.Grade, s.Section)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Delete removes a student.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
