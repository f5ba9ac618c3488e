package website

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockSSRFValidator はSSRFValidatorのテスト用モック。
// httptestサーバーは127.0.0.1で起動されるため、
// 本物のSSRFガードはブロックしてしまう。
type mockSSRFValidator struct {
	validateErr error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	return m.validateErr
}

func (m *mockSSRFValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func TestFetchTitle_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Thai Villa | Authentic Thai Cuisine</title></head><body>...</body></html>`))
	}))
	defer server.Close()

	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	title, err := fetcher.FetchTitle(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchTitle() error = %v", err)
	}
	if title != "Thai Villa | Authentic Thai Cuisine" {
		t.Errorf("title = %q", title)
	}
}

func TestFetchTitle_TitleWhitespaceTrimmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>\n  Thai Villa  \n</title></head></html>"))
	}))
	defer server.Close()

	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	title, err := fetcher.FetchTitle(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchTitle() error = %v", err)
	}
	if title != "Thai Villa" {
		t.Errorf("title = %q, want %q", title, "Thai Villa")
	}
}

func TestFetchTitle_NoTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head></head><body>no title</body></html>`))
	}))
	defer server.Close()

	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	if _, err := fetcher.FetchTitle(context.Background(), server.URL); err == nil {
		t.Fatal("title要素がない場合はエラーになるべきです")
	}
}

func TestFetchTitle_NonHTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	if _, err := fetcher.FetchTitle(context.Background(), server.URL); err == nil {
		t.Fatal("HTML以外のContent-Typeはエラーになるべきです")
	}
}

func TestFetchTitle_SSRFBlocked(t *testing.T) {
	fetcher := NewTitleFetcher(
		&mockSSRFValidator{validateErr: errors.New("プライベートIPへのアクセスはブロックされます")},
		5*time.Second,
		1024*1024,
	)
	if _, err := fetcher.FetchTitle(context.Background(), "http://169.254.169.254/"); err == nil {
		t.Fatal("SSRF検証エラーが伝播すべきです")
	}
}

func TestFetchTitle_EmptyURL(t *testing.T) {
	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	if _, err := fetcher.FetchTitle(context.Background(), ""); err == nil {
		t.Fatal("空URLはエラーになるべきです")
	}
}

func TestFetchTitle_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewTitleFetcher(&mockSSRFValidator{}, 5*time.Second, 1024*1024)
	if _, err := fetcher.FetchTitle(context.Background(), server.URL); err == nil {
		t.Fatal("5xxレスポンスはエラーになるべきです")
	}
}

func TestExtractTitle_StopsAtBody(t *testing.T) {
	body := []byte(`<html><head></head><body><title>本文中のtitleは無視</title></body></html>`)
	if got := extractTitle(body); got != "" {
		t.Errorf("extractTitle() = %q, want 空文字列", got)
	}
}
