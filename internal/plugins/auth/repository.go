package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/database"
)

// mysqlErrDuplicateEntry is ER_DUP_ENTRY.
const mysqlErrDuplicateEntry = 1062

// UserRepository defines the data access contract for credentials.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	// FindByUsername is a case-sensitive exact match. Returns
	// apperror.NotFound if no user has this username.
	FindByUsername(ctx context.Context, username string) (*User, error)

	UsernameExists(ctx context.Context, username string) (bool, error)

	// CreateWithProfile inserts the student row and the user row that
	// references it in one transaction. On success user.ID and
	// user.StudentID are set.
	CreateWithProfile(ctx context.Context, profile *StudentProfile, user *User) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByUsername retrieves a user by username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, email, password_hash, student_id, created_at
	          FROM users WHERE username = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.StudentID,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by username: %w", err)
	}

	return user, nil
}

// UsernameExists returns true if the username is already registered. Used
// during registration to reject duplicates before hashing the password.
func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking username existence: %w", err)
	}
	return exists, nil
}

// CreateWithProfile writes both rows or neither. A unique-key violation
// (lost race on the username) comes back as a conflict.
func (r *userRepository) CreateWithProfile(ctx context.Context, profile *StudentProfile, user *User) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		studentID, err := insertStudent(ctx, tx, profile)
		if err != nil {
			return err
		}

		userID, err := insertUser(ctx, tx, user, studentID)
		if err != nil {
			return err
		}

		user.ID = userID
		user.StudentID = studentID
		return nil
	})

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return apperror.NewConflict(MsgUsernameTaken)
	}
	return err
}

// insertStudent adds the profile row and returns its generated id.
func insertStudent(ctx context.Context, q database.Execer, p *StudentProfile) (int64, error) {
	query := `INSERT INTO student
	          (prefix_id, first_name, last_name, date_of_birth, sex, curriculum_id,
	           previous_school, address, telephone, email, line_id, status)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := q.ExecContext(ctx, query,
		p.PrefixID,
		p.FirstName,
		p.LastName,
		p.DateOfBirth,
		p.Sex,
		p.CurriculumID,
		p.PreviousSchool,
		p.Address,
		p.Telephone,
		p.Email,
		p.LineID,
		p.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting student: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading student id: %w", err)
	}
	return id, nil
}

// insertUser adds the credential row linked to studentID.
func insertUser(ctx context.Context, q database.Execer, u *User, studentID int64) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, student_id, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	res, err := q.ExecContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHash,
		studentID,
		u.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading user id: %w", err)
	}
	return id, nil
}
