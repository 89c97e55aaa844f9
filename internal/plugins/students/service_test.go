package students

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
)

func TestProfile_NotFoundPassesThrough(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{})

	_, err := svc.Profile(context.Background(), 1)
	if !apperror.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestProfile_StorageFailureIsInternal(t *testing.T) {
	dbErr := errors.New("timeout")
	svc := NewStudentService(&mockStudentRepo{
		findProfileFn: func(ctx context.Context, userID int64) (*Profile, error) {
			return nil, dbErr
		},
	})

	_, err := svc.Profile(context.Background(), 1)
	if apperror.SafeCode(err) != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apperror.SafeCode(err))
	}
	if !errors.Is(err, dbErr) {
		t.Error("expected cause to be wrapped")
	}
}

func TestStudent_FullName(t *testing.T) {
	if got := (Student{FirstName: "Somchai", LastName: "Jaidee"}).FullName(); got != "Somchai Jaidee" {
		t.Errorf("unexpected full name %q", got)
	}
}
