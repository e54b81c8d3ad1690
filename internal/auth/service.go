// Package auth はメールアドレスとパスワードによる登録・ログインを提供する。
// 成功時はステートレスなアクセストークンを発行し、サーバー側にセッションを持たない。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/interviewtracker/internal/model"
	"github.com/hitoshi/interviewtracker/internal/repository"
)

// dummyPassword は未登録メールアドレスでのログイン時に照合するダミーのパスワード。
const dummyPassword = "interview-tracker-dummy-password"

// TokenIssuer はアクセストークンを発行する。
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// Recorder は認証操作の結果を記録する。
type Recorder interface {
	RecordAuth(operation, outcome string)
}

// 認証結果のラベル
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeEmailAlreadyUsed   = "email_already_used"
	OutcomeError              = "error"
)

// AuthResult は登録・ログイン成功時の結果。
type AuthResult struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder Recorder
	clock    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, recorder Recorder) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		clock:    time.Now,
	}
}

// NormalizeEmail は前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新規ユーザーを登録し、アクセストークンを返す。
// トークンの発行はユーザーの永続化より前に行うため、失敗時にユーザー行は残らない。
func (s *Service) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードは必須です")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.record("register", OutcomeError)
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		s.record("register", OutcomeEmailAlreadyUsed)
		return nil, model.NewEmailAlreadyUsedError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.record("register", OutcomeError)
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock(),
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.record("register", OutcomeError)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 存在確認と挿入の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.record("register", OutcomeEmailAlreadyUsed)
			return nil, model.NewEmailAlreadyUsedError()
		}
		s.record("register", OutcomeError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record("register", OutcomeSuccess)
	slog.Info("user registered", slog.String("user_id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードを検証し、新しいアクセストークンを返す。
// 未登録メールアドレスとパスワード不一致は同一のエラーを返し、
// 未登録の場合もダミーハッシュとの照合を行って応答時間の差を抑える。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.record("login", OutcomeError)
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		_ = s.hasher.Compare(s.dummy(), password)
		s.record("login", OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.record("login", OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.record("login", OutcomeError)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.record("login", OutcomeSuccess)
	slog.Debug("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

// CurrentUser はユーザーIDに対応するユーザーを返す。
// トークン発行後にユーザーが存在しなくなった場合は未認証として扱う。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

// dummy は照合用のダミーハッシュを返す。初回呼び出し時に一度だけ生成する。
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("failed to generate dummy password hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) record(operation, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordAuth(operation, outcome)
	}
}
