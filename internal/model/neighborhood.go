package model

// Neighborhood は近隣地区エンティティを表す。
type Neighborhood struct {
	ID      int64
	Name    string
	Zipcode string
	// IsDefault は郵便番号で特定できなかったレストランに割り当てる
	// 番兵行であることを示す。番兵行はマイグレーションでシードされる。
	IsDefault bool
}

// NeighborhoodRef は近隣地区へのタグ付き参照を表す。
// 割り当て済み（実在の地区ID）と未割り当ての2状態を持ち、
// 未割り当て参照はストレージ境界でのみ番兵行のIDに解決される。
// パイプライン中でID=1のようなハードコードされた既定値を持ち回らないための設計。
// 複数のParsedItemが同じ地区を参照してよい（所有ではなく参照）。
type NeighborhoodRef struct {
	id       int64
	name     string
	assigned bool
}

// AssignedNeighborhood は実在の地区への参照を生成する。
func AssignedNeighborhood(id int64, name string) NeighborhoodRef {
	return NeighborhoodRef{id: id, name: name, assigned: true}
}

// UnassignedNeighborhood は未割り当ての参照を生成する。
// 郵便番号の欠落や照会失敗の際に使用され、投入時に番兵行へ解決される。
func UnassignedNeighborhood() NeighborhoodRef {
	return NeighborhoodRef{}
}

// Assigned は実在の地区が割り当てられているかを返す。
func (r NeighborhoodRef) Assigned() bool {
	return r.assigned
}

// ID は割り当て済みの地区IDを返す。未割り当ての場合は0を返すため、
// 呼び出し側は先にAssignedを確認すること。
func (r NeighborhoodRef) ID() int64 {
	return r.id
}

// Name は割り当て済みの地区名を返す。未割り当ての場合は空文字列。
func (r NeighborhoodRef) Name() string {
	return r.name
}
