package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// newChainRouter は本番と同じ順序でミドルウェアを積んだchi.Routerを返す。
func newChainRouter(t *testing.T, logBuf *bytes.Buffer) (*chi.Mux, *RateLimiter) {
	t.Helper()

	rl := NewRateLimiter(RateLimiterConfig{
		AuthRate: 1, AuthBurst: 1,
		GeneralRate: 1, GeneralBurst: 2,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	logger := slog.New(slog.NewJSONHandler(logBuf, nil))

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware())
	r.Use(NewSecurityHeadersMiddleware())
	r.Use(NewCORSMiddleware("http://localhost:5173"))
	r.Use(NewBearerAuthMiddleware(acceptOnly("good-token", "user-chain"), logger))
	r.Use(NewLoggingMiddleware(logger))

	r.With(rl.AuthMiddleware()).Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(rl.GeneralMiddleware())
		r.Get("/api/interviews", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
	})

	return r, rl
}

func TestMiddlewareChain_AuthenticatedRequest(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	req := httptest.NewRequest(http.MethodGet, "/api/interviews", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["user_id"] != "user-chain" {
		t.Errorf("user_id = %q, want %q", body["user_id"], "user-chain")
	}

	// ログ行に認証済みユーザーIDが含まれること
	var entry map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v\nraw: %s", err, logBuf.String())
	}
	if entry["user_id"] != "user-chain" {
		t.Errorf("logged user_id = %v, want %q", entry["user_id"], "user-chain")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be applied")
	}
}

func TestMiddlewareChain_ForgedToken_Returns401(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	req := httptest.NewRequest(http.MethodGet, "/api/interviews", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareChain_PreflightShortCircuits(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	req := httptest.NewRequest(http.MethodOptions, "/api/interviews", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, Content-Type" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestMiddlewareChain_LoginIsRateLimitedPerIP(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, requestFrom("192.0.2.10:1000"))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, requestFrom("192.0.2.10:1001"))

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d, want %d", first.Code, http.StatusOK)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}
