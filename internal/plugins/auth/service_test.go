package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/keyxmakerx/studentrecords/internal/apperror"
	"github.com/keyxmakerx/studentrecords/internal/metrics"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	findByUsernameFn    func(ctx context.Context, username string) (*User, error)
	usernameExistsFn    func(ctx context.Context, username string) (bool, error)
	createWithProfileFn func(ctx context.Context, profile *StudentProfile, user *User) error
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound(MsgUserNotFound)
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) CreateWithProfile(ctx context.Context, profile *StudentProfile, user *User) error {
	if m.createWithProfileFn != nil {
		return m.createWithProfileFn(ctx, profile, user)
	}
	return nil
}

// --- Mock Hasher ---

// mockHasher is a reversible stand-in for bcrypt that records calls.
type mockHasher struct {
	hashCalls   int
	verifyCalls int
	hashErr     error
}

func (h *mockHasher) Hash(password string) (string, error) {
	h.hashCalls++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *mockHasher) Verify(password, encoded string) bool {
	h.verifyCalls++
	return encoded == "hashed:"+password
}

// --- Mock Session Store ---

// mockSessionStore wraps a memory store and can inject failures.
type mockSessionStore struct {
	*MemorySessionStore
	createCalls int
	getErr      error
	deleteErr   error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{MemorySessionStore: NewMemorySessionStore(0)}
}

func (s *mockSessionStore) Create(ctx context.Context, sess *Session) (string, error) {
	s.createCalls++
	return s.MemorySessionStore.Create(ctx, sess)
}

func (s *mockSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemorySessionStore.Get(ctx, token)
}

func (s *mockSessionStore) Delete(ctx context.Context, token string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemorySessionStore.Delete(ctx, token)
}

// --- Helpers ---

func validRegisterInput() RegisterInput {
	return RegisterInput{
		PrefixID:        "1",
		FirstName:       "Somchai",
		LastName:        "Jaidee",
		DateOfBirth:     "2008-04-15",
		Sex:             "M",
		CurriculumID:    "2",
		PreviousSchool:  "Wat Suthi",
		Address:         "12 Moo 3",
		Telephone:       "0812345678",
		Email:           "somchai@example.com",
		LineID:          "somchai.j",
		Status:          "active",
		Username:        "somchai",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}
}

func assertAppError(t *testing.T, err error, code int, message string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %d, got %d", code, appErr.Code)
	}
	if message != "" && appErr.Message != message {
		t.Errorf("expected message %q, got %q", message, appErr.Message)
	}
}

func newTestService(repo UserRepository, store SessionStore, hasher PasswordHasher, opts Options) *authService {
	return NewAuthService(repo, store, hasher, opts).(*authService)
}

// --- Register Tests ---

func TestRegister_PasswordMismatch(t *testing.T) {
	wrote := false
	checked := false
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			checked = true
			return false, nil
		},
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			wrote = true
			return nil
		},
	}
	hasher := &mockHasher{}
	m := metrics.New()
	svc := newTestService(repo, newMockSessionStore(), hasher, Options{Metrics: m})

	in := validRegisterInput()
	in.ConfirmPassword = "secret124"
	// Invalid fields elsewhere must not mask the mismatch.
	in.FirstName = ""

	_, err := svc.Register(context.Background(), in)
	assertAppError(t, err, http.StatusUnprocessableEntity, MsgPasswordMismatch)

	if wrote || checked {
		t.Error("expected no repository access on password mismatch")
	}
	if hasher.hashCalls != 0 {
		t.Error("expected no hashing on password mismatch")
	}
	if got := testutil.ToFloat64(m.RegistrationsCounter(metrics.RegisterValidation)); got != 1 {
		t.Errorf("expected 1 validation registration, got %v", got)
	}
}

func TestRegister_Success(t *testing.T) {
	var gotProfile *StudentProfile
	var gotUser *User
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			gotProfile, gotUser = p, u
			u.ID = 10
			u.StudentID = 20
			return nil
		},
	}
	hasher := &mockHasher{}
	store := newMockSessionStore()
	svc := newTestService(repo, store, hasher, Options{})

	user, err := svc.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 10 || user.StudentID != 20 {
		t.Errorf("expected ids from repository, got %+v", user)
	}
	if gotUser.PasswordHash != "hashed:secret123" {
		t.Errorf("expected hashed password stored, got %q", gotUser.PasswordHash)
	}
	if gotUser.Username != "somchai" || gotUser.Email != "somchai@example.com" {
		t.Errorf("unexpected user: %+v", gotUser)
	}
	if gotProfile.FirstName != "Somchai" || gotProfile.LastName != "Jaidee" {
		t.Errorf("unexpected profile names: %+v", gotProfile)
	}
	if gotProfile.PrefixID == nil || *gotProfile.PrefixID != 1 {
		t.Errorf("expected prefix id 1, got %v", gotProfile.PrefixID)
	}
	if gotProfile.CurriculumID == nil || *gotProfile.CurriculumID != 2 {
		t.Errorf("expected curriculum id 2, got %v", gotProfile.CurriculumID)
	}
	want := time.Date(2008, 4, 15, 0, 0, 0, 0, time.UTC)
	if gotProfile.DateOfBirth == nil || !gotProfile.DateOfBirth.Equal(want) {
		t.Errorf("expected date of birth %s, got %v", want, gotProfile.DateOfBirth)
	}
	if store.createCalls != 0 {
		t.Error("registration must not create a session")
	}
}

func TestRegister_OptionalFieldsBlank(t *testing.T) {
	var gotProfile *StudentProfile
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			gotProfile = p
			return nil
		},
	}
	svc := newTestService(repo, newMockSessionStore(), &mockHasher{}, Options{})

	in := validRegisterInput()
	in.PrefixID = ""
	in.CurriculumID = " "
	in.DateOfBirth = ""

	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotProfile.PrefixID != nil || gotProfile.CurriculumID != nil || gotProfile.DateOfBirth != nil {
		t.Errorf("expected nil optional fields, got %+v", gotProfile)
	}
}

func TestRegister_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "  " }, "Username is required"},
		{"padded username", func(in *RegisterInput) { in.Username = " somchai " }, MsgUsernameSpaces},
		{"trailing space username", func(in *RegisterInput) { in.Username = "somchai\t" }, MsgUsernameSpaces},
		{"missing password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "", "" }, "Password is required"},
		{"missing first name", func(in *RegisterInput) { in.FirstName = "" }, "First name is required"},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }, "Last name is required"},
		{"bad date", func(in *RegisterInput) { in.DateOfBirth = "15/04/2008" }, "Date of birth must be YYYY-MM-DD"},
		{"bad prefix", func(in *RegisterInput) { in.PrefixID = "Mr." }, "Prefix must be a number"},
		{"bad curriculum", func(in *RegisterInput) { in.CurriculumID = "sci" }, "Curriculum must be a number"},
		{"password too long", func(in *RegisterInput) {
			long := strings.Repeat("a", MaxPasswordBytes+1)
			in.Password, in.ConfirmPassword = long, long
		}, "Password must be at most 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrote := false
			repo := &mockUserRepo{
				createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
					wrote = true
					return nil
				},
			}
			hasher := &mockHasher{}
			svc := newTestService(repo, newMockSessionStore(), hasher, Options{})

			in := validRegisterInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			assertAppError(t, err, http.StatusUnprocessableEntity, tt.want)
			if wrote || hasher.hashCalls != 0 {
				t.Error("expected no writes and no hashing")
			}
		})
	}
}

func TestRegister_PasswordAtLimit(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockSessionStore(), &mockHasher{}, Options{})

	in := validRegisterInput()
	pw := strings.Repeat("a", MaxPasswordBytes)
	in.Password, in.ConfirmPassword = pw, pw

	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("expected %d-byte password to be accepted, got %v", MaxPasswordBytes, err)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	wrote := false
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return username == "somchai", nil
		},
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			wrote = true
			return nil
		},
	}
	hasher := &mockHasher{}
	svc := newTestService(repo, newMockSessionStore(), hasher, Options{})

	_, err := svc.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, http.StatusConflict, MsgUsernameTaken)
	if wrote || hasher.hashCalls != 0 {
		t.Error("expected no writes and no hashing for a taken username")
	}
}

func TestRegister_DuplicateKeyRace(t *testing.T) {
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			return apperror.NewConflict(MsgUsernameTaken)
		},
	}
	m := metrics.New()
	svc := newTestService(repo, newMockSessionStore(), &mockHasher{}, Options{Metrics: m})

	_, err := svc.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, http.StatusConflict, MsgUsernameTaken)
	if got := testutil.ToFloat64(m.RegistrationsCounter(metrics.RegisterConflict)); got != 1 {
		t.Errorf("expected 1 conflict registration, got %v", got)
	}
}

func TestRegister_StorageFailure(t *testing.T) {
	dbErr := errors.New("connection reset")
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			return dbErr
		},
	}
	svc := newTestService(repo, newMockSessionStore(), &mockHasher{}, Options{})

	_, err := svc.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, http.StatusInternalServerError, apperror.InternalMessage)
	if !errors.Is(err, dbErr) {
		t.Error("expected internal error to wrap the storage error")
	}
}

func TestRegister_HashFailure(t *testing.T) {
	wrote := false
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			wrote = true
			return nil
		},
	}
	svc := newTestService(repo, newMockSessionStore(), &mockHasher{hashErr: errors.New("boom")}, Options{})

	_, err := svc.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, http.StatusInternalServerError, apperror.InternalMessage)
	if wrote {
		t.Error("expected no write when hashing fails")
	}
}

// --- Login Tests ---

func storedUser() *User {
	return &User{ID: 5, Username: "somchai", PasswordHash: "hashed:secret123", StudentID: 9}
}

func repoWithUser(u *User) *mockUserRepo {
	return &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username == u.Username {
				return u, nil
			}
			return nil, apperror.NewNotFound(MsgUserNotFound)
		},
	}
}

func TestLogin_Success(t *testing.T) {
	store := newMockSessionStore()
	m := metrics.New()
	svc := newTestService(repoWithUser(storedUser()), store, &mockHasher{}, Options{Metrics: m})

	token, user, err := svc.Login(context.Background(), LoginInput{Username: "somchai", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 5 {
		t.Errorf("expected user 5, got %d", user.ID)
	}

	sess, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("expected session for returned token: %v", err)
	}
	if sess.UserID != 5 || sess.Username != "somchai" || sess.StudentID != 9 {
		t.Errorf("unexpected session: %+v", sess)
	}
	if got := testutil.ToFloat64(m.LoginAttemptsCounter(metrics.LoginSuccess)); got != 1 {
		t.Errorf("expected 1 successful login, got %v", got)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	store := newMockSessionStore()
	hasher := &mockHasher{}
	svc := newTestService(repoWithUser(storedUser()), store, hasher, Options{})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "secret123"})
	assertAppError(t, err, http.StatusUnauthorized, MsgUserNotFound)

	if store.createCalls != 0 {
		t.Error("failed login must not create a session")
	}
	if hasher.verifyCalls != 1 {
		t.Errorf("expected one equalizing verify for unknown user, got %d", hasher.verifyCalls)
	}
}

func TestLogin_UsernameIsCaseSensitive(t *testing.T) {
	store := newMockSessionStore()
	svc := newTestService(repoWithUser(storedUser()), store, &mockHasher{}, Options{})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "Somchai", Password: "secret123"})
	assertAppError(t, err, http.StatusUnauthorized, MsgUserNotFound)
}

func TestLogin_InvalidPassword(t *testing.T) {
	store := newMockSessionStore()
	m := metrics.New()
	svc := newTestService(repoWithUser(storedUser()), store, &mockHasher{}, Options{Metrics: m})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "somchai", Password: "wrong"})
	assertAppError(t, err, http.StatusUnauthorized, MsgInvalidPassword)

	if store.createCalls != 0 || store.Len() != 0 {
		t.Error("failed login must not create a session")
	}
	if got := testutil.ToFloat64(m.LoginAttemptsCounter(metrics.LoginInvalidPassword)); got != 1 {
		t.Errorf("expected 1 invalid_password login, got %v", got)
	}
}

func TestLogin_GenericErrors(t *testing.T) {
	svc := newTestService(repoWithUser(storedUser()), newMockSessionStore(), &mockHasher{}, Options{GenericErrors: true})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "x"})
	assertAppError(t, err, http.StatusUnauthorized, MsgInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginInput{Username: "somchai", Password: "x"})
	assertAppError(t, err, http.StatusUnauthorized, MsgInvalidCredentials)
}

func TestLogin_RepositoryFailure(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return nil, errors.New("db down")
		},
	}
	store := newMockSessionStore()
	svc := newTestService(repo, store, &mockHasher{}, Options{})

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "somchai", Password: "secret123"})
	assertAppError(t, err, http.StatusInternalServerError, apperror.InternalMessage)
	if store.createCalls != 0 {
		t.Error("failed login must not create a session")
	}
}

// --- Session Tests ---

func TestValidateSession_Rejects(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockSessionStore(), &mockHasher{}, Options{})

	for _, token := range []string{"", "abc", strings.Repeat("z", 64), strings.Repeat("a", 64)} {
		_, err := svc.ValidateSession(context.Background(), token)
		assertAppError(t, err, http.StatusUnauthorized, "")
	}
}

func TestValidateSession_StoreFailure(t *testing.T) {
	store := newMockSessionStore()
	store.getErr = errors.New("redis down")
	svc := newTestService(&mockUserRepo{}, store, &mockHasher{}, Options{})

	_, err := svc.ValidateSession(context.Background(), strings.Repeat("a", 64))
	assertAppError(t, err, http.StatusInternalServerError, apperror.InternalMessage)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	store := newMockSessionStore()
	m := metrics.New()
	svc := newTestService(repoWithUser(storedUser()), store, &mockHasher{}, Options{Metrics: m})

	token, _, err := svc.Login(context.Background(), LoginInput{Username: "somchai", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), token); err == nil {
		t.Error("expected session to be gone after logout")
	}
	if got := testutil.ToFloat64(m.LogoutsCounter()); got != 1 {
		t.Errorf("expected 1 logout, got %v", got)
	}
}

func TestLogout_NoToken(t *testing.T) {
	m := metrics.New()
	svc := newTestService(&mockUserRepo{}, newMockSessionStore(), &mockHasher{}, Options{Metrics: m})

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.LogoutsCounter()); got != 0 {
		t.Errorf("expected no logout counted, got %v", got)
	}
}

func TestLogout_StoreFailure(t *testing.T) {
	store := newMockSessionStore()
	store.deleteErr = errors.New("redis down")
	svc := newTestService(&mockUserRepo{}, store, &mockHasher{}, Options{})

	err := svc.Logout(context.Background(), strings.Repeat("b", 64))
	assertAppError(t, err, http.StatusInternalServerError, apperror.InternalMessage)
}

func TestRegister_StripsMarkupFromProfile(t *testing.T) {
	var gotProfile *StudentProfile
	repo := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, p *StudentProfile, u *User) error {
			gotProfile = p
			return nil
		},
	}
	svc := newTestService(repo, newMockSessionStore(), &mockHasher{}, Options{})

	in := validRegisterInput()
	in.FirstName = "<b>Somchai</b>"
	in.Address = `12 Moo 3<script>alert(1)</script>`

	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotProfile.FirstName != "Somchai" || gotProfile.Address != "12 Moo 3" {
		t.Errorf("expected markup stripped, got %q / %q", gotProfile.FirstName, gotProfile.Address)
	}

	in.LastName = "<script>x</script>"
	_, err := svc.Register(context.Background(), in)
	assertAppError(t, err, http.StatusUnprocessableEntity, "Name must contain text")
}
