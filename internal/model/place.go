package model

// PlaceCandidate は場所検索APIが返した候補1件を表す。
type PlaceCandidate struct {
	PlaceID     string // 外部APIの不透明な識別子
	Name        string
	Description string // 検索結果に含まれる補足表示文字列
}

// ResolvedPlace は場所詳細取得の結果を表す。
// 解決対象のParsedItemが排他的に所有し、アイテム間で共有しない。
type ResolvedPlace struct {
	PlaceID          string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	PostalCode       string // 住所に郵便番号がない場合は空
	Phone            string // 任意項目
	Website          string // 任意項目
	WebsiteTitle     string // ウェブサイトエンリッチで取得したページタイトル（任意）
}
