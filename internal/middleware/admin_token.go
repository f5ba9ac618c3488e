package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// NewAdminTokenMiddleware は管理APIのBearerトークン認証ミドルウェアを返す。
// Authorizationヘッダーのトークンが設定値と一致しない場合は401を返す。
// トークンの比較は一定時間で行う。
func NewAdminTokenMiddleware(adminToken string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorizedResponse(w)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				writeUnauthorizedResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorizedResponse は401レスポンスを統一エラーフォーマットで書き込む。
func writeUnauthorizedResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "UNAUTHORIZED",
		"message":  "認証が必要です。",
		"category": "auth",
		"action":   "有効な管理トークンをAuthorizationヘッダーで送信してください。",
	})
}
