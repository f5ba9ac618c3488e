// Package cleanup は一括追加実行履歴の自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過したbulk_runsを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chomp/internal/metrics"
)

// RunDeleter は実行履歴の削除を抽象化するインターフェース。
// repository.RunRepositoryがこのインターフェースを満たす。
type RunDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した実行履歴の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	runs          RunDeleter
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	RetentionDays int // 実行履歴の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(runs RunDeleter, collector metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		runs:          runs,
		collector:     collector,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過した実行履歴を削除する。
// created_atがRetentionDays日前より古いbulk_runsをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("実行履歴クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("実行履歴クリーンアップの実行に失敗: %w", err)
	}

	j.collector.RecordRunsDeleted(deletedCount)

	duration := time.Since(start)
	j.logger.Info("実行履歴クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
