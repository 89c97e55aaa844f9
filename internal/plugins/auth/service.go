package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/metrics"
	"github.com/keyxmakerx/studentrecords/internal/sanitize"
)

// dateLayout is the accepted date of birth format (HTML date input).
const dateLayout = "2006-01-02"

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)
	ValidateSession(ctx context.Context, token string) (*Session, error)
	DestroySession(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
}

// Options tunes service behaviour that varies between deployments.
type Options struct {
	// GenericErrors collapses "User not found" and "Invalid password" into
	// one message so login responses do not reveal which usernames exist.
	GenericErrors bool

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// authService implements AuthService on a credential repository, a session
// store and a password hasher.
type authService struct {
	repo     UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	opts     Options
	now      func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, sessions SessionStore, hasher PasswordHasher, opts Options) AuthService {
	return &authService{
		repo:     repo,
		sessions: sessions,
		hasher:   hasher,
		opts:     opts,
		now:      time.Now,
	}
}

// Register creates a credential and its student profile. Nothing is written
// unless every check passes, and the two rows commit together.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if input.Password != input.ConfirmPassword {
		s.opts.Metrics.ObserveRegistration(metrics.RegisterValidation)
		return nil, apperror.NewValidation(MsgPasswordMismatch)
	}

	profile, err := validateRegistration(input)
	if err != nil {
		s.opts.Metrics.ObserveRegistration(metrics.RegisterValidation)
		return nil, err
	}

	// Check the username before doing expensive hashing.
	exists, err := s.repo.UsernameExists(ctx, input.Username)
	if err != nil {
		s.opts.Metrics.ObserveRegistration(metrics.RegisterError)
		return nil, apperror.NewInternal(fmt.Errorf("checking username: %w", err))
	}
	if exists {
		s.opts.Metrics.ObserveRegistration(metrics.RegisterConflict)
		return nil, apperror.NewConflict(MsgUsernameTaken)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.opts.Metrics.ObserveRegistration(metrics.RegisterError)
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		Username:     input.Username,
		Email:        profile.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.CreateWithProfile(ctx, profile, user); err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Code < 500 {
			s.opts.Metrics.ObserveRegistration(metrics.RegisterConflict)
			return nil, appErr
		}
		s.opts.Metrics.ObserveRegistration(metrics.RegisterError)
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	s.opts.Metrics.ObserveRegistration(metrics.RegisterSuccess)
	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.Int64("student_id", user.StudentID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates by exact username and password. Failures never
// create a session.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if !apperror.IsNotFound(err) {
			s.opts.Metrics.ObserveLogin(metrics.LoginError)
			return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
		}

		// Burn one bcrypt round so an unknown username costs the same as
		// a wrong password.
		s.hasher.Verify(input.Password, "")

		s.opts.Metrics.ObserveLogin(metrics.LoginUserNotFound)
		slog.Info("login failed",
			slog.String("username", input.Username),
			slog.String("reason", metrics.LoginUserNotFound),
		)
		return "", nil, apperror.NewUnauthorized(s.failureMessage(MsgUserNotFound))
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.opts.Metrics.ObserveLogin(metrics.LoginInvalidPassword)
		slog.Info("login failed",
			slog.String("username", input.Username),
			slog.String("reason", metrics.LoginInvalidPassword),
		)
		return "", nil, apperror.NewUnauthorized(s.failureMessage(MsgInvalidPassword))
	}

	token, err := s.sessions.Create(ctx, &Session{
		UserID:    user.ID,
		Username:  user.Username,
		StudentID: user.StudentID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.opts.Metrics.ObserveLogin(metrics.LoginError)
		return "", nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	s.opts.Metrics.ObserveLogin(metrics.LoginSuccess)
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return token, user, nil
}

// ValidateSession returns the live session for token. Unknown, expired and
// malformed tokens are all Unauthorized; store failures are Internal.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if !validTokenFormat(token) {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}

	session, err := s.sessions.Get(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session: %w", err))
	}

	return session, nil
}

// DestroySession removes a session. Malformed tokens were never stored, so
// there is nothing to delete.
func (s *authService) DestroySession(ctx context.Context, token string) error {
	if !validTokenFormat(token) {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session: %w", err))
	}
	return nil
}

// Logout destroys the session behind token. An empty token is a no-op.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.DestroySession(ctx, token); err != nil {
		return err
	}

	s.opts.Metrics.ObserveLogout()
	slog.Info("session destroyed")
	return nil
}

func (s *authService) failureMessage(specific string) string {
	if s.opts.GenericErrors {
		return MsgInvalidCredentials
	}
	return specific
}

// validateRegistration checks required fields and parses the optional
// typed ones into a StudentProfile.
func validateRegistration(in RegisterInput) (*StudentProfile, error) {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return nil, apperror.NewValidation("Username is required")
	case strings.TrimSpace(in.Username) != in.Username:
		// Login matches usernames exactly, so padded variants would be
		// distinct accounts.
		return nil, apperror.NewValidation(MsgUsernameSpaces)
	case in.Password == "":
		return nil, apperror.NewValidation("Password is required")
	case len(in.Password) > MaxPasswordBytes:
		return nil, apperror.NewValidation(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	case strings.TrimSpace(in.FirstName) == "":
		return nil, apperror.NewValidation("First name is required")
	case strings.TrimSpace(in.LastName) == "":
		return nil, apperror.NewValidation("Last name is required")
	}

	profile := &StudentProfile{
		FirstName:      sanitize.Text(in.FirstName),
		LastName:       sanitize.Text(in.LastName),
		Sex:            sanitize.Text(in.Sex),
		PreviousSchool: sanitize.Text(in.PreviousSchool),
		Address:        sanitize.Text(in.Address),
		Telephone:      sanitize.Text(in.Telephone),
		Email:          sanitize.Text(in.Email),
		LineID:         sanitize.Text(in.LineID),
		Status:         sanitize.Text(in.Status),
	}
	if profile.FirstName == "" || profile.LastName == "" {
		return nil, apperror.NewValidation("Name must contain text")
	}

	var err error
	if profile.PrefixID, err = parseOptionalID(in.PrefixID, "Prefix"); err != nil {
		return nil, err
	}
	if profile.CurriculumID, err = parseOptionalID(in.CurriculumID, "Curriculum"); err != nil {
		return nil, err
	}

	if dob := strings.TrimSpace(in.DateOfBirth); dob != "" {
		t, err := time.Parse(dateLayout, dob)
		if err != nil {
			return nil, apperror.NewValidation("Date of birth must be YYYY-MM-DD")
		}
		profile.DateOfBirth = &t
	}

	return profile, nil
}

// parseOptionalID returns nil for a blank value.
func parseOptionalID(raw, field string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.NewValidation(field + " must be a number")
	}
	return &id, nil
}
