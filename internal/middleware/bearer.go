// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/interviewtracker/internal/token"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Serviceが実装する。
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// exemptPaths はトークンを検査しないパス。
var exemptPaths = map[string]struct{}{
	"/api/auth/register": {},
	"/api/auth/login":    {},
	"/health":            {},
	"/metrics":           {},
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 成功した場合のみユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
//
// 検証に失敗してもリクエストは拒否せず、識別子なしで後続に渡す。
// 認証が必要かどうかの判断は各ハンドラーが行う。
func NewBearerAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(raw)
			if err != nil {
				logger.Debug("bearer token rejected",
					slog.String("path", r.URL.Path),
					slog.Bool("expired", token.Expired(err)),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

func isExempt(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	_, ok := exemptPaths[r.URL.Path]
	return ok
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
// スキーム名は大文字小文字を区別しない。
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) <= len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(bearerPrefix):])
	return raw, raw != ""
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークン検証に成功したリクエストでのみ値が存在する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
