// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は一括追加で貼り付けられた自由テキスト
// （名前、場所、タグ）からマークアップを除去し、
// 保存後に管理画面へ表示される際のXSSリスクからオペレーターを保護する。
// bluemondayの厳格ポリシーを使用し、HTMLタグを一切許可しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は貼り付けテキストのサニタイズ機能のインターフェースを定義する。
// パース直後（パイプラインにアイテムが入る前）に適用される。
type TextSanitizerService interface {
	// Sanitize は入力テキストからすべてのHTMLタグを除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストノードのみを残す。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを除去してトリムする。
// StrictPolicyは残ったテキストをHTMLエンティティにエスケープするため、
// 「Joe's Pizza」や「P&J Cafe」のような正当な名前を壊さないよう
// エスケープを元に戻してプレーンテキストとして返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
