package students

import (
	"context"
	"fmt"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
)

// StudentService defines the roster and profile operations.
type StudentService interface {
	Roster(ctx context.Context) ([]Student, error)
	Profile(ctx context.Context, userID int64) (*Profile, error)
}

type studentService struct {
	repo StudentRepository
}

// NewStudentService creates a new student service.
func NewStudentService(repo StudentRepository) StudentService {
	return &studentService{repo: repo}
}

// Roster returns all students ordered by id.
func (s *studentService) Roster(ctx context.Context) ([]Student, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading roster: %w", err))
	}
	return list, nil
}

// Profile returns the greeting data for userID. NotFound passes through.
func (s *studentService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	p, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading profile: %w", err))
	}
	return p, nil
}
