package bulkadd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/repository"
)

// Submitter は個別処理を終えたアイテムの投入を担う。
// 投入直前のゲート判定でreadyとなったアイテムだけを
// 1つのSubmissionBatchにまとめ、1回のトランザクションで投入する。
type Submitter struct {
	restaurants repository.RestaurantRepository
	dishes      repository.DishRepository
	logger      *slog.Logger
}

// NewSubmitter はSubmitterの新しいインスタンスを生成する。
func NewSubmitter(restaurants repository.RestaurantRepository, dishes repository.DishRepository, logger *slog.Logger) *Submitter {
	return &Submitter{
		restaurants: restaurants,
		dishes:      dishes,
		logger:      logger,
	}
}

// Submit はゲートを通過したアイテムをバッチ投入する。
// 戻り値の2つ目はゲートを通過できずバッチから除外された行数
// （トランザクション内のスキップとは別勘定）。
// readyなアイテムが1件もない場合は空の結果を返し、投入は行わない。
func (s *Submitter) Submit(ctx context.Context, itemType model.ItemType, items []*model.ParsedItem) (*model.BatchResult, int, error) {
	ready := make([]*model.ParsedItem, 0, len(items))
	notSubmitted := 0

	for _, item := range items {
		if !s.passesGate(itemType, item) {
			notSubmitted++
			continue
		}
		item.Status = model.ItemStatusReady
		ready = append(ready, item)
	}

	if len(ready) == 0 {
		return &model.BatchResult{Details: []model.BatchDetail{}}, notSubmitted, nil
	}

	batch := &model.SubmissionBatch{
		Items:       ready,
		SubmittedAt: time.Now(),
	}

	var result *model.BatchResult
	var err error
	switch itemType {
	case model.ItemTypeDish:
		result, err = s.dishes.BulkInsert(ctx, batch)
	default:
		result, err = s.restaurants.BulkInsert(ctx, batch)
	}
	if err != nil {
		return nil, notSubmitted, fmt.Errorf("バッチ投入に失敗しました: %w", err)
	}

	if !result.Valid() {
		// 不変条件違反は実装バグであり、結果を信頼できない
		return nil, notSubmitted, fmt.Errorf("バッチ結果の不変条件に違反しています: processed=%d added=%d skipped=%d details=%d",
			result.ProcessedCount, result.AddedCount, result.SkippedCount, len(result.Details))
	}

	s.logger.Info("バッチ投入が完了しました",
		slog.String("item_type", string(itemType)),
		slog.Int("processed", result.ProcessedCount),
		slog.Int("added", result.AddedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("not_submitted", notSubmitted),
	)

	return result, notSubmitted, nil
}

// passesGate は投入直前のゲート判定を行う。
// レストラン行は場所が解決済みで住所が非空であること。
// 料理行は親レストラン名が非空であること。
// 地区は未割り当てでもストレージ境界で番兵行に解決されるため妨げない。
func (s *Submitter) passesGate(itemType model.ItemType, item *model.ParsedItem) bool {
	if item.Status != model.ItemStatusProcessed {
		return false
	}
	if item.Name == "" {
		return false
	}

	switch itemType {
	case model.ItemTypeDish:
		return item.LocationText != ""
	default:
		return item.Place != nil && item.Place.FormattedAddress != ""
	}
}
