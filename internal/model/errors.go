// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, bulk, place, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidItemType   = "INVALID_ITEM_TYPE"
	ErrCodeEmptyInput        = "EMPTY_INPUT"
	ErrCodeBulkLimitExceeded = "BULK_LIMIT_EXCEEDED"
	ErrCodePlaceNotFound     = "PLACE_NOT_FOUND"
	ErrCodePlaceLookupFailed = "PLACE_LOOKUP_FAILED"
	ErrCodeInvalidZipcode    = "INVALID_ZIPCODE"
	ErrCodeRunNotFound       = "RUN_NOT_FOUND"
	ErrCodeTransactionFailed = "TRANSACTION_FAILED"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。itemsは{\"items\": [...]}のオブジェクト形式で送信してください。",
	}
}

// NewInvalidItemTypeError は不正なエンティティ種別エラーを生成する。
func NewInvalidItemTypeError(itemType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidItemType,
		Message:  fmt.Sprintf("無効なエンティティ種別です: %s", itemType),
		Category: "validation",
		Action:   "種別には restaurant または dish のいずれかを指定してください。",
	}
}

// NewEmptyInputError は入力テキストが空の場合のエラーを生成する。
func NewEmptyInputError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyInput,
		Message:  "入力テキストが空です。",
		Category: "validation",
		Action:   "1行につき1件、名前;種別;場所;タグ の形式で入力してください。",
	}
}

// NewBulkLimitExceededError は一括追加の件数上限超過エラーを生成する。
func NewBulkLimitExceededError(count, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeBulkLimitExceeded,
		Message:  fmt.Sprintf("一括追加の件数が上限を超えています: %d件（上限 %d件）", count, limit),
		Category: "bulk",
		Action:   "入力を分割して複数回に分けて投入してください。",
	}
}

// NewPlaceNotFoundError は場所検索が0件だった場合のエラーを生成する。
func NewPlaceNotFoundError(query string) *APIError {
	return &APIError{
		Code:     ErrCodePlaceNotFound,
		Message:  fmt.Sprintf("この名前と場所に一致する場所が見つかりませんでした: %s", query),
		Category: "place",
		Action:   "名前の表記や都市名を確認して再度お試しください。",
	}
}

// NewPlaceLookupFailedError は場所検索APIの呼び出し失敗エラーを生成する。
func NewPlaceLookupFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePlaceLookupFailed,
		Message:  fmt.Sprintf("場所検索APIの呼び出しに失敗しました: %s", reason),
		Category: "place",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidZipcodeError は不正な郵便番号エラーを生成する。
func NewInvalidZipcodeError(zipcode string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidZipcode,
		Message:  fmt.Sprintf("無効な郵便番号です: %s", zipcode),
		Category: "validation",
		Action:   "郵便番号を確認してください。",
	}
}

// NewRunNotFoundError は実行レコードが見つからない場合のエラーを生成する。
func NewRunNotFoundError(runID string) *APIError {
	return &APIError{
		Code:     ErrCodeRunNotFound,
		Message:  fmt.Sprintf("指定された一括追加の実行が見つかりません: %s", runID),
		Category: "bulk",
		Action:   "実行IDを確認してください。保持期間を超過した実行は削除されます。",
	}
}

// NewTransactionFailedError はバッチ投入トランザクション自体の失敗エラーを生成する。
// 行単位の競合や例外はここには含まれず、接続断などの基盤障害のみが該当する。
func NewTransactionFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTransactionFailed,
		Message:  fmt.Sprintf("バッチ投入トランザクションに失敗しました: %s", reason),
		Category: "system",
		Action:   "データベース接続を確認し、再度投入してください。挿入済みの行は重複チェックで検出されます。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "管理者トークンをAuthorizationヘッダーに指定してください。",
	}
}
