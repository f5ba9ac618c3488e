// Package bulkadd は一括追加パイプラインのドメインロジックを提供する。
package bulkadd

import (
	"context"
	"log/slog"

	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/repository"
)

// CheckEntry は重複チェックの入力1件を表す。
type CheckEntry struct {
	Name         string `json:"name"`
	LocationText string `json:"location,omitempty"`
}

// CheckResult は重複チェックの結果1件を表す。
type CheckResult struct {
	Name     string                `json:"name"`
	Exists   bool                  `json:"exists"`
	// Existing はヒットしなかった場合も明示的にnullとして出力する
	Existing *model.ExistingEntity `json:"existing"`
}

// Checker は既存エンティティとの重複チェックを提供する。
// チェックは読み取り専用で冪等。重複の検出は情報提供であり、
// 投入の採否はオペレーターの判断に委ねる。
type Checker struct {
	restaurants repository.RestaurantRepository
	dishes      repository.DishRepository
	logger      *slog.Logger
}

// NewChecker はCheckerの新しいインスタンスを生成する。
func NewChecker(restaurants repository.RestaurantRepository, dishes repository.DishRepository, logger *slog.Logger) *Checker {
	return &Checker{
		restaurants: restaurants,
		dishes:      dishes,
		logger:      logger,
	}
}

// Check は名前と場所の組み合わせリストに対する重複チェックを実行する。
// 結果は入力と同じ順序で返される。
func (c *Checker) Check(ctx context.Context, itemType model.ItemType, entries []CheckEntry) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(entries))
	for _, entry := range entries {
		existing, err := c.lookup(ctx, itemType, entry.Name, entry.LocationText)
		if err != nil {
			return nil, err
		}
		results = append(results, CheckResult{
			Name:     entry.Name,
			Exists:   existing != nil,
			Existing: existing,
		})
	}
	return results, nil
}

// Annotate は各アイテムに既存エンティティの有無を記録する。
// 検索の失敗はアイテムをエラーにせず、未検出として扱う。
func (c *Checker) Annotate(ctx context.Context, itemType model.ItemType, items []*model.ParsedItem) {
	for _, item := range items {
		if item.Status != model.ItemStatusProcessed {
			continue
		}
		existing, err := c.lookup(ctx, itemType, item.Name, item.LocationText)
		if err != nil {
			c.logger.Warn("重複チェックに失敗したため未検出として扱います",
				slog.Int("line_number", item.LineNumber),
				slog.String("name", item.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		item.Existing = existing
	}
}

// lookup は種別に応じた既存エンティティ検索を行う。
func (c *Checker) lookup(ctx context.Context, itemType model.ItemType, name, locationText string) (*model.ExistingEntity, error) {
	switch itemType {
	case model.ItemTypeDish:
		dish, err := c.dishes.FindByNameAndRestaurant(ctx, name, locationText)
		if err != nil {
			return nil, err
		}
		if dish == nil {
			return nil, nil
		}
		return &model.ExistingEntity{ID: dish.ID, Name: dish.Name}, nil

	default:
		restaurant, err := c.restaurants.FindByNameAndCity(ctx, name, locationText)
		if err != nil {
			return nil, err
		}
		if restaurant == nil {
			return nil, nil
		}
		return &model.ExistingEntity{ID: restaurant.ID, Name: restaurant.Name}, nil
	}
}
