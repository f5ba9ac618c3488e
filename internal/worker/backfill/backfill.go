// Package backfill は番兵地区のままのレストランに対する地区の再解決ジョブを提供する。
// 投入時点で郵便番号に対応する地区が未登録だったレストランを対象に、
// 地区マスタの拡充後に定期バッチで割り当てを埋め直す。
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chomp/internal/model"
)

// RestaurantBackfiller は再解決対象レストランの取得と更新のインターフェース。
// repository.RestaurantRepositoryがこのインターフェースを満たす。
type RestaurantBackfiller interface {
	ListNeedingNeighborhoodBackfill(ctx context.Context, limit int) ([]*model.Restaurant, error)
	UpdateNeighborhood(ctx context.Context, restaurantID, neighborhoodID int64) error
}

// NeighborhoodLookup は郵便番号から地区を照会するインターフェース。
type NeighborhoodLookup interface {
	ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error)
}

// Config はバックフィルジョブの設定パラメータ。
// 環境変数から設定可能。
type Config struct {
	// Interval はジョブの実行間隔（デフォルト: 1時間）。
	Interval time.Duration
	// MaxCallsPerCycle は1サイクルあたりの最大処理件数（デフォルト: 50）。
	MaxCallsPerCycle int
}

// DefaultConfig はデフォルトのバックフィルジョブ設定を返す。
func DefaultConfig() Config {
	return Config{
		Interval:         1 * time.Hour,
		MaxCallsPerCycle: 50,
	}
}

// Job は地区バックフィルの定期実行ジョブ。
// 番兵地区が割り当てられたままのレストランのうち郵便番号を持つものを
// 作成日時の古い順に処理し、地区マスタに一致があれば割り当てを更新する。
type Job struct {
	restaurants   RestaurantBackfiller
	neighborhoods NeighborhoodLookup
	logger        *slog.Logger
	config        Config
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(
	restaurants RestaurantBackfiller,
	neighborhoods NeighborhoodLookup,
	logger *slog.Logger,
	config Config,
) *Job {
	return &Job{
		restaurants:   restaurants,
		neighborhoods: neighborhoods,
		logger:        logger,
		config:        config,
	}
}

// Start はバックフィルジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info("地区バックフィルジョブを開始しました",
		slog.Duration("interval", j.config.Interval),
		slog.Int("max_calls_per_cycle", j.config.MaxCallsPerCycle),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("地区バックフィルサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("地区バックフィルジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("地区バックフィルサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回のバックフィルサイクルを実行する。
// 対象レストランを取得し、郵便番号ごとに地区を照会して割り当てを更新する。
// 照会で一致しなかったレストランは次サイクル以降に持ち越される。
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()

	restaurants, err := j.restaurants.ListNeedingNeighborhoodBackfill(ctx, j.config.MaxCallsPerCycle)
	if err != nil {
		return fmt.Errorf("バックフィル対象レストランの取得に失敗しました: %w", err)
	}

	if len(restaurants) == 0 {
		j.logger.Info("地区バックフィル対象のレストランはありません")
		return nil
	}

	j.logger.Info("地区バックフィルサイクルを開始します",
		slog.Int("target_restaurants", len(restaurants)),
	)

	var updatedCount, unmatchedCount, errorCount int

	for _, r := range restaurants {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		neighborhoods, err := j.neighborhoods.ByZipcode(ctx, r.PostalCode)
		if err != nil {
			errorCount++
			j.logger.Warn("地区の照会に失敗しました",
				slog.Int64("restaurant_id", r.ID),
				slog.String("zipcode", r.PostalCode),
				slog.String("error", err.Error()),
			)
			continue
		}

		if len(neighborhoods) == 0 {
			unmatchedCount++
			continue
		}

		// 複数一致時は先頭を採用する
		selected := neighborhoods[0]
		if err := j.restaurants.UpdateNeighborhood(ctx, r.ID, selected.ID); err != nil {
			errorCount++
			j.logger.Warn("地区の更新に失敗しました",
				slog.Int64("restaurant_id", r.ID),
				slog.Int64("neighborhood_id", selected.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		updatedCount++
	}

	duration := time.Since(start)
	j.logger.Info("地区バックフィルサイクルが完了しました",
		slog.Int("updated_count", updatedCount),
		slog.Int("unmatched_count", unmatchedCount),
		slog.Int("error_count", errorCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
