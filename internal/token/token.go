// Package token はHS256署名のアクセストークンの発行と検証を行う。
// トークンは永続化せず、検証は署名と有効期限のみで完結する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/interviewtracker/internal/model"
)

// DefaultIssuer はトークンのiss claimに設定する発行者名。
const DefaultIssuer = "interview-tracker"

// MinSecretLength は署名鍵として受け付ける最小バイト長。
const MinSecretLength = 32

// Claims はアクセストークンのclaim。subにユーザーIDを格納する。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service はトークンの発行と検証を行う。
// 生成後は状態を変更しないため、複数goroutineから安全に利用できる。
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  func() time.Time
}

// Option はServiceの設定を変更する関数型オプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。テストで有効期限の境界を検証するために使う。
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithIssuer は発行者名を変更する。
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// NewService はServiceを生成する。
// 署名鍵がMinSecretLength未満、または有効期間が正でない場合はエラーを返す。
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: DefaultIssuer,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue はユーザーIDとメールアドレスを埋め込んだ署名済みトークンを発行する。
// jtiに毎回新しいUUIDを設定するため、同じ秒に発行したトークンも互いに異なる。
func (s *Service) Issue(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("token subject must not be empty")
	}

	now := s.clock()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subに格納されたユーザーIDを返す。
// 署名不一致・形式不正・HS256以外のアルゴリズム・期限切れ（now >= exp）・sub欠落は
// すべてmodel.ErrInvalidTokenとして扱う。
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return "", model.NewInvalidTokenError(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", model.NewInvalidTokenError(errors.New("token subject is missing"))
	}
	return claims.Subject, nil
}

// Expired は検証エラーが有効期限切れによるものかを返す。ログの分類に使う。
func Expired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
