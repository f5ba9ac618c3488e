package model

import "time"

// DetailStatus はバッチ投入結果の行ごとの最終状態を表す。
type DetailStatus string

const (
	// DetailStatusAdded は新規に挿入された行。
	DetailStatusAdded DetailStatus = "added"
	// DetailStatusSkipped は一意制約の競合等でスキップされた行。
	DetailStatusSkipped DetailStatus = "skipped"
	// DetailStatusError は行単位の例外でスキップされた行。
	DetailStatusError DetailStatus = "error"
	// DetailStatusReview は既存エンティティとの重複が検出され、
	// オペレーターの確認を要する行。投入自体からは除外されない。
	DetailStatusReview DetailStatus = "review"
)

// BatchDetail はバッチ投入の行ごとの結果レコード。
// オペレーターに結果テーブルとして表示するための情報を持つ。
type BatchDetail struct {
	InputName  string       `json:"input_name"`
	InputType  ItemType     `json:"input_type"`
	LineNumber int          `json:"line_number"`
	Status     DetailStatus `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	InsertedID *int64       `json:"inserted_id,omitempty"`
}

// SubmissionBatch は投入時点でreadyステータスのParsedItemの集合を表す。
// 全アイテムの個別処理が完了した後に1回だけ生成され、
// 1回のトランザクション投入呼び出しの後に破棄される。
type SubmissionBatch struct {
	Items       []*ParsedItem
	SubmittedAt time.Time
}

// BatchResult はバッチ投入全体の結果を表す。
// 不変条件: ProcessedCount == AddedCount + SkippedCount かつ
// len(Details) == ProcessedCount。SkippedCountにはerror行も含まれる。
type BatchResult struct {
	ProcessedCount int           `json:"processed_count"`
	AddedCount     int           `json:"added_count"`
	SkippedCount   int           `json:"skipped_count"`
	Details        []BatchDetail `json:"details"`
}

// Valid はBatchResultの不変条件を検証する。
func (r *BatchResult) Valid() bool {
	return r.ProcessedCount == r.AddedCount+r.SkippedCount &&
		len(r.Details) == r.ProcessedCount
}

// BulkRun は1回のパイプライン実行の永続化レコードを表す。
// 実行結果の再表示と保持期間超過分の自動削除のために保存される。
type BulkRun struct {
	ID             string // UUID
	ItemType       ItemType
	InputLineCount int
	ParseErrors    []ParseError
	Result         BatchResult
	// NotSubmittedCount は投入ゲートを通過できず
	// バッチから除外された行数（トランザクション内のスキップとは別勘定）。
	NotSubmittedCount int
	SubmittedAt       time.Time
	CreatedAt         time.Time
}
