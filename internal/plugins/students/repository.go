package students

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
)

// StudentRepository defines read access to student profiles.
type StudentRepository interface {
	// List returns every student ordered by id.
	List(ctx context.Context) ([]Student, error)

	// FindProfileByUserID joins users to student. Returns apperror.NotFound
	// when the user or its profile does not exist.
	FindProfileByUserID(ctx context.Context, userID int64) (*Profile, error)
}

// studentRepository implements StudentRepository with MariaDB queries.
type studentRepository struct {
	db *sql.DB
}

// NewStudentRepository creates a repository backed by the given DB pool.
func NewStudentRepository(db *sql.DB) StudentRepository {
	return &studentRepository{db: db}
}

// List reads the whole roster.
func (r *studentRepository) List(ctx context.Context) ([]Student, error) {
	query := `SELECT id, prefix_id, first_name, last_name, date_of_birth, sex,
	                 curriculum_id, previous_school, address, telephone, email,
	                 line_id, status, created_at
	          FROM student ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var (
			s            Student
			prefixID     sql.NullInt64
			curriculumID sql.NullInt64
			dob          sql.NullTime
		)
		if err := rows.Scan(
			&s.ID, &prefixID, &s.FirstName, &s.LastName, &dob, &s.Sex,
			&curriculumID, &s.PreviousSchool, &s.Address, &s.Telephone, &s.Email,
			&s.LineID, &s.Status, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning student: %w", err)
		}
		if prefixID.Valid {
			s.PrefixID = &prefixID.Int64
		}
		if curriculumID.Valid {
			s.CurriculumID = &curriculumID.Int64
		}
		if dob.Valid {
			s.DateOfBirth = &dob.Time
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating students: %w", err)
	}

	return out, nil
}

// FindProfileByUserID loads the name of the student linked to userID.
func (r *studentRepository) FindProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	query := `SELECT u.id, s.id, s.first_name, s.last_name
	          FROM users u
	          JOIN student s ON s.id = u.student_id
	          WHERE u.id = ?`

	p := &Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.StudentID, &p.FirstName, &p.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	return p, nil
}
