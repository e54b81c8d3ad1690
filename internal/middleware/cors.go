package middleware

import "net/http"

// CORSで許可するメソッドとヘッダー。
// 認証はAuthorizationヘッダーのBearerトークンで行う。
const (
	corsAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowedHeaders = "Authorization, Content-Type"
	corsExposedHeaders = "Retry-After"
	corsMaxAgeSeconds  = "86400"
)

// NewCORSMiddleware は単一のオリジンを許可するCORSミドルウェアを返す。
// Cookieを使わないため、Access-Control-Allow-Credentialsは付与しない。
// プリフライトは後続に渡さず204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAgeSeconds)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
