// Package model はドメインモデルを定義する。
package model

// ItemType は一括追加の1行が表すエンティティ種別。
type ItemType string

const (
	// ItemTypeRestaurant はレストランを表す。
	ItemTypeRestaurant ItemType = "restaurant"
	// ItemTypeDish は料理を表す。
	ItemTypeDish ItemType = "dish"
	// ItemTypeUnknown は種別を判定できなかった行を表す。
	// パイプラインの後続ステージには進まず、レポートにのみ残る。
	ItemTypeUnknown ItemType = "unknown"
)

// ItemStatus はパイプライン内での行ごとの処理状態を表す。
// 遷移: pending → processing → (processed | error)。
// ready は投入直前のゲート判定でのみ付与され、途中状態としては保持しない。
// error はその実行内で終端状態であり、自動リトライは行わない。
type ItemStatus string

const (
	// ItemStatusPending はパース直後の初期状態。
	ItemStatusPending ItemStatus = "pending"
	// ItemStatusProcessing は場所解決・エンリッチ処理中の状態。
	ItemStatusProcessing ItemStatus = "processing"
	// ItemStatusProcessed は場所解決とエンリッチが完了した状態。
	ItemStatusProcessed ItemStatus = "processed"
	// ItemStatusReady は投入ゲートを通過した状態。
	ItemStatusReady ItemStatus = "ready"
	// ItemStatusError は行単位の処理失敗。実行内で終端。
	ItemStatusError ItemStatus = "error"
)

// ParsedItem は貼り付けテキストの1行から生成された構造化候補を表す。
// 1行につき1つ生成され、その行を処理するタスクが排他的に所有する。
type ParsedItem struct {
	LineNumber    int      // 1始まりの入力行番号
	Name          string   // エンティティ名（空であってはならない）
	ItemType      ItemType
	LocationText  string   // レストランの場合は都市名、料理の場合は親レストラン名
	Tags          []string // 空の場合もある。順序は入力順を維持
	Status        ItemStatus
	StatusMessage string // オペレーター向けの状態説明

	// Place は場所解決の結果。解決前およびdish行ではnil。
	Place *ResolvedPlace
	// Candidates は場所検索が複数件返した場合の候補一覧。
	// 先頭が自動選択されるが、オペレーターの見直しのために保持する。
	Candidates []PlaceCandidate
	// Neighborhood はエンリッチ結果の近隣地区参照。
	Neighborhood NeighborhoodRef
	// Existing は重複チェックで既存エンティティが見つかったかどうか。
	// 見つかった場合でも投入は除外しない（採否はオペレーターの判断）。
	Existing *ExistingEntity
}

// ExistingEntity は重複チェックで検出された既存エンティティの要約。
type ExistingEntity struct {
	ID   int64
	Name string
}

// Advanceable はこのアイテムがパース後の後続ステージに進めるかを返す。
// 名前が空、または種別がunknownの行は後続に進まない。
func (p *ParsedItem) Advanceable() bool {
	return p.Name != "" && p.ItemType != ItemTypeUnknown
}

// MarkError はアイテムを終端のエラー状態に遷移させる。
func (p *ParsedItem) MarkError(message string) {
	p.Status = ItemStatusError
	p.StatusMessage = message
}

// ParseError はパースできなかった入力行の報告を表す。
// パース失敗は実行全体を中断せず、エラーリストとして報告される。
type ParseError struct {
	LineNumber int    `json:"line_number"`
	Message    string `json:"message"`
	Content    string `json:"content"`
}
