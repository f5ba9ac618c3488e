// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/chomp/internal/model"
)

// NeighborhoodRepository は近隣地区データの永続化インターフェース。
type NeighborhoodRepository interface {
	// ByZipcode は指定郵便番号の地区一覧を返す。該当なしの場合は空スライスを返す。
	ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error)

	// DefaultID は番兵行（未割り当てレストラン用の既定地区）のIDを返す。
	DefaultID(ctx context.Context) (int64, error)
}

// RestaurantRepository はレストランデータの永続化インターフェース。
type RestaurantRepository interface {
	// FindByNameAndCity は名前と都市名でレストランを検索する（大文字小文字を無視）。
	// 都市名が空の場合は名前のみで検索する。見つからない場合はnilを返す。
	FindByNameAndCity(ctx context.Context, name, cityName string) (*model.Restaurant, error)

	// SearchByName は名前の部分一致でレストランを検索する。
	SearchByName(ctx context.Context, query string, limit int) ([]*model.Restaurant, error)

	// BulkInsert はreadyステータスのレストラン行を1トランザクションで投入する。
	// 行単位の失敗は他の行の投入を妨げず、一意制約の競合はスキップとして記録される。
	// 未割り当ての地区参照は番兵行のIDに解決される。
	BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error)

	// ListNeedingNeighborhoodBackfill は番兵地区のままのレストランのうち、
	// 郵便番号を持つものを作成日時の古い順に返す。
	ListNeedingNeighborhoodBackfill(ctx context.Context, limit int) ([]*model.Restaurant, error)

	// UpdateNeighborhood はレストランの地区を更新する。
	UpdateNeighborhood(ctx context.Context, restaurantID, neighborhoodID int64) error
}

// DishRepository は料理データの永続化インターフェース。
type DishRepository interface {
	// FindByNameAndRestaurant は料理名と親レストラン名で料理を検索する
	// （大文字小文字を無視）。見つからない場合はnilを返す。
	FindByNameAndRestaurant(ctx context.Context, dishName, restaurantName string) (*model.Dish, error)

	// BulkInsert はreadyステータスの料理行を1トランザクションで投入する。
	// 親レストランが存在しない行は行単位のエラーとして記録される。
	BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error)
}

// RunRepository は一括追加実行履歴の永続化インターフェース。
type RunRepository interface {
	// Create は実行履歴を保存する。
	Create(ctx context.Context, run *model.BulkRun) error

	// FindByID は指定IDの実行履歴を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.BulkRun, error)

	// DeleteOlderThan は指定日時より古い実行履歴を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
