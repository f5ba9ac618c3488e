// Package website はレストラン公式サイトのメタデータ取得を提供する。
package website

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// TitleFetcher はレストラン公式サイトからページタイトルを取得する。
// 取得はベストエフォートであり、失敗しても呼び出し元の処理を妨げない。
type TitleFetcher struct {
	ssrfGuard       SSRFValidator
	timeout         time.Duration
	maxResponseSize int64
}

// NewTitleFetcher はTitleFetcherの新しいインスタンスを生成する。
func NewTitleFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxResponseSize int64) *TitleFetcher {
	return &TitleFetcher{
		ssrfGuard:       ssrfGuard,
		timeout:         timeout,
		maxResponseSize: maxResponseSize,
	}
}

// FetchTitle はURLのHTMLを取得しtitle要素のテキストを返す。
// 1. SSRF検証を実行
// 2. SSRF防止付きクライアントでHTMLを取得
// 3. headタグからtitle要素を抽出
// HTMLでない、またはtitleがない場合は空文字列とエラーを返す。
func (f *TitleFetcher) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("URLが空です")
	}

	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
			return "", fmt.Errorf("URL検証に失敗しました: %w", err)
		}
	}

	client := f.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Chomp/1.0 Bulk Add")
	req.Header.Set("Accept", "text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ページの取得に失敗しました: status=%d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", fmt.Errorf("HTMLではないContent-Typeです: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("レスポンスの読み取りに失敗しました: %w", err)
	}

	title := extractTitle(body)
	if title == "" {
		return "", fmt.Errorf("title要素が見つかりませんでした")
	}
	return title, nil
}

// extractTitle はHTMLのheadタグからtitle要素のテキストを抽出する。
func extractTitle(htmlBody []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inTitle := false
	var title strings.Builder

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(title.String())

		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tagName := string(tn)
			if tagName == "title" {
				inTitle = true
			}
			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return strings.TrimSpace(title.String())
			}

		case html.TextToken:
			if inTitle {
				title.Write(tokenizer.Text())
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				return strings.TrimSpace(title.String())
			}
		}
	}
}

// getHTTPClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *TitleFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxResponseSize)
	}
	return &http.Client{Timeout: f.timeout}
}
