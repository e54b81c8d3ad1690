package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/interviewtracker/internal/model"
	"github.com/hitoshi/interviewtracker/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

// plainHasher はテスト用の高速なPasswordHasher。
// 照合回数を数え、ダミーハッシュとの照合が行われたことを検証できる。
type plainHasher struct {
	mu       sync.Mutex
	compared []string
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *plainHasher) Compare(hash, password string) error {
	h.mu.Lock()
	h.compared = append(h.compared, hash)
	h.mu.Unlock()
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type mockIssuer struct {
	issueFn func(userID, email string) (string, error)
	calls   int
}

func (m *mockIssuer) Issue(userID, email string) (string, error) {
	m.calls++
	if m.issueFn != nil {
		return m.issueFn(userID, email)
	}
	return "token-for-" + userID, nil
}

type mockRecorder struct {
	events []string
}

func (m *mockRecorder) RecordAuth(operation, outcome string) {
	m.events = append(m.events, operation+":"+outcome)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ PasswordHasher = (*plainHasher)(nil)
var _ TokenIssuer = (*mockIssuer)(nil)
var _ Recorder = (*mockRecorder)(nil)

// --- テスト ---

func TestRegister_NewEmail_CreatesUserAndReturnsToken(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	rec := &mockRecorder{}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, rec)

	result, err := svc.Register(context.Background(), "  A@X.com ", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Email != "a@x.com" {
		t.Errorf("email = %q, want normalized %q", created.Email, "a@x.com")
	}
	if created.PasswordHash != "hashed:secret123" {
		t.Errorf("password hash = %q, want hashed value", created.PasswordHash)
	}
	if created.ID == "" {
		t.Error("expected non-empty user ID")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if result.Token != "token-for-"+created.ID {
		t.Errorf("token = %q, want token for created user", result.Token)
	}
	if len(rec.events) != 1 || rec.events[0] != "register:success" {
		t.Errorf("recorded events = %v", rec.events)
	}
}

func TestRegister_ExistingEmail_ReturnsEmailAlreadyUsed(t *testing.T) {
	createCalled := false
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email}, nil
		},
		createFn: func(_ context.Context, _ *model.User) error {
			createCalled = true
			return nil
		},
	}
	issuer := &mockIssuer{}
	svc := NewService(repo, &plainHasher{}, issuer, nil)

	result, err := svc.Register(context.Background(), "a@x.com", "another-pass")

	if !errors.Is(err, model.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
	if result != nil {
		t.Error("expected nil result")
	}
	if createCalled {
		t.Error("Create should not be called for an existing email")
	}
	if issuer.calls != 0 {
		t.Error("no token should be issued")
	}
}

func TestRegister_CaseDifferentEmail_TreatedAsExisting(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == "a@x.com" {
				return &model.User{ID: "user-1", Email: email}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), "A@X.COM", "secret123")

	if !errors.Is(err, model.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestRegister_ConcurrentInsertRace_ReturnsEmailAlreadyUsed(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	rec := &mockRecorder{}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, rec)

	_, err := svc.Register(context.Background(), "a@x.com", "secret123")

	if !errors.Is(err, model.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
	if len(rec.events) != 1 || rec.events[0] != "register:email_already_used" {
		t.Errorf("recorded events = %v", rec.events)
	}
}

func TestRegister_TokenFailure_DoesNotPersistUser(t *testing.T) {
	createCalled := false
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			createCalled = true
			return nil
		},
	}
	issuer := &mockIssuer{
		issueFn: func(_, _ string) (string, error) {
			return "", errors.New("signing failed")
		},
	}
	svc := NewService(repo, &plainHasher{}, issuer, nil)

	if _, err := svc.Register(context.Background(), "a@x.com", "secret123"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if createCalled {
		t.Error("user should not be persisted when token issuing fails")
	}
}

func TestRegister_EmptyInput_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), "   ", "secret123")

	if !errors.Is(err, model.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestLogin_CorrectPassword_ReturnsToken(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: "hashed:secret123"}, nil
		},
	}
	rec := &mockRecorder{}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, rec)

	result, err := svc.Login(context.Background(), "A@x.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token != "token-for-user-1" {
		t.Errorf("token = %q, want %q", result.Token, "token-for-user-1")
	}
	if result.User.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", result.User.ID, "user-1")
	}
	if len(rec.events) != 1 || rec.events[0] != "login:success" {
		t.Errorf("recorded events = %v", rec.events)
	}
}

func TestLogin_WrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: "hashed:secret123"}, nil
		},
	}
	issuer := &mockIssuer{}
	svc := NewService(repo, &plainHasher{}, issuer, nil)

	_, err := svc.Login(context.Background(), "a@x.com", "wrong")

	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if issuer.calls != 0 {
		t.Error("no token should be issued on failure")
	}
}

func TestLogin_UnknownEmail_ComparesAgainstDummyHash(t *testing.T) {
	hasher := &plainHasher{}
	svc := NewService(&mockUserRepo{}, hasher, &mockIssuer{}, nil)

	_, err := svc.Login(context.Background(), "nobody@x.com", "whatever")

	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(hasher.compared) != 1 {
		t.Fatalf("expected one password comparison, got %d", len(hasher.compared))
	}
	if hasher.compared[0] != "hashed:"+dummyPassword {
		t.Errorf("compared hash = %q, want dummy hash", hasher.compared[0])
	}
}

func TestLogin_UnknownEmailAndWrongPassword_AreIndistinguishable(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == "a@x.com" {
				return &model.User{ID: "user-1", Email: email, PasswordHash: "hashed:secret123"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, errUnknown := svc.Login(context.Background(), "nobody@x.com", "secret123")
	_, errWrong := svc.Login(context.Background(), "a@x.com", "wrong")

	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("errors differ: %q vs %q", errUnknown.Error(), errWrong.Error())
	}
}

func TestLogin_RepositoryError_IsReturned(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Login(context.Background(), "a@x.com", "secret123")

	if err == nil || errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "db down") {
		t.Errorf("error should wrap cause, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: "user-1", Email: "a@x.com"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	user, err := svc.CurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.Email != "a@x.com" {
		t.Errorf("email = %q, want %q", user.Email, "a@x.com")
	}

	if _, err := svc.CurrentUser(context.Background(), "deleted-user"); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for missing user, got %v", err)
	}
	if _, err := svc.CurrentUser(context.Background(), ""); !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for empty ID, got %v", err)
	}
}

// TestRegisterThenLogin_WithBcrypt は実際のbcryptで登録からログインまでを検証する。
func TestRegisterThenLogin_WithBcrypt(t *testing.T) {
	users := map[string]*model.User{}
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return users[email], nil
		},
		createFn: func(_ context.Context, user *model.User) error {
			users[user.Email] = user
			return nil
		},
	}
	issued := 0
	issuer := &mockIssuer{
		issueFn: func(userID, _ string) (string, error) {
			issued++
			return userID + "-" + string(rune('0'+issued)), nil
		},
	}
	svc := NewService(repo, NewBcryptHasher(4), issuer, nil)

	reg, err := svc.Register(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if strings.Contains(users["a@x.com"].PasswordHash, "secret123") {
		t.Error("password must not be stored in plain text")
	}

	login, err := svc.Login(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if reg.Token == login.Token {
		t.Error("login should issue a new token")
	}

	if _, err := svc.Login(context.Background(), "a@x.com", "wrong-pass"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
