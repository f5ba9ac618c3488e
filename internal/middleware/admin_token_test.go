package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func adminProtectedHandler(t *testing.T, token string) http.Handler {
	t.Helper()
	return NewAdminTokenMiddleware(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

// TestAdminTokenMiddleware_ValidToken は正しいトークンでリクエストが通ることを検証する。
func TestAdminTokenMiddleware_ValidToken(t *testing.T) {
	handler := adminProtectedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bulk-add/restaurant", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// TestAdminTokenMiddleware_WrongToken は不正なトークンが401になることを検証する。
func TestAdminTokenMiddleware_WrongToken(t *testing.T) {
	handler := adminProtectedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bulk-add/restaurant", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %q, want %q", body["code"], "UNAUTHORIZED")
	}
}

// TestAdminTokenMiddleware_MissingHeader はヘッダーなしが401になることを検証する。
func TestAdminTokenMiddleware_MissingHeader(t *testing.T) {
	handler := adminProtectedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bulk-add/restaurant", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestAdminTokenMiddleware_NonBearerScheme はBearer以外のスキームが401になることを検証する。
func TestAdminTokenMiddleware_NonBearerScheme(t *testing.T) {
	handler := adminProtectedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bulk-add/restaurant", nil)
	req.Header.Set("Authorization", "Basic secret-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
