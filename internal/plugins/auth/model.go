// Package auth handles user authentication, session management, and
// password security for the student records app. It provides registration
// (credential + student profile in one transaction), login, logout, and the
// RequireAuth guard that protects the roster.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"
)

// User-visible outcome messages. The login and registration forms answer
// with these as plain text.
const (
	MsgRegistered         = "Registration successful!"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgUsernameTaken      = "Username already taken"
	MsgUserNotFound       = "User not found"
	MsgInvalidPassword    = "Invalid password"
	MsgInvalidCredentials = "Invalid username or password"
	MsgUsernameSpaces     = "Username must not start or end with spaces"
)

// User is a row of the users table: the credential linked to exactly one
// student profile.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	StudentID    int64     `json:"student_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentProfile is the validated profile written alongside a new
// credential. Optional numeric and date fields are nil when left blank.
type StudentProfile struct {
	PrefixID       *int64
	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	Sex            string
	CurriculumID   *int64
	PreviousSchool string
	Address        string
	Telephone      string
	Email          string
	LineID         string
	Status         string
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted by the registration form. Field
// names follow the form inputs, including confirmPassword.
type RegisterRequest struct {
	PrefixID        string `form:"prefix_id"`
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	DateOfBirth     string `form:"date_of_birth"`
	Sex             string `form:"sex"`
	CurriculumID    string `form:"curriculum_id"`
	PreviousSchool  string `form:"previous_school"`
	Address         string `form:"address"`
	Telephone       string `form:"telephone"`
	Email           string `form:"email"`
	LineID          string `form:"line_id"`
	Status          string `form:"status"`
	Username        string `form:"username"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the raw registration input. The service validates and
// parses it; the handler does no checks of its own so the password
// confirmation is always the first thing examined.
type RegisterInput struct {
	PrefixID        string
	FirstName       string
	LastName        string
	DateOfBirth     string
	Sex             string
	CurriculumID    string
	PreviousSchool  string
	Address         string
	Telephone       string
	Email           string
	LineID          string
	Status          string
	Username        string
	Password        string
	ConfirmPassword string
}

// LoginInput is the input for authenticating a user.
type LoginInput struct {
	Username string
	Password string
}

// --- Session ---

// Session is the server-held record bound to an opaque session token. The
// token itself is the store key and is never part of the value.
type Session struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// toInput converts a bound form into service input.
func (r RegisterRequest) toInput() RegisterInput {
	return RegisterInput(r)
}
