package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/chomp/internal/model"
)

// PostgresRunRepo はPostgreSQLを使用した一括追加実行履歴リポジトリ。
// パースエラーと行ごとの結果詳細はJSONBカラムに保存する。
type PostgresRunRepo struct {
	db *sql.DB
}

// NewPostgresRunRepo はPostgresRunRepoを生成する。
func NewPostgresRunRepo(db *sql.DB) *PostgresRunRepo {
	return &PostgresRunRepo{db: db}
}

// Create は実行履歴を保存する。
func (r *PostgresRunRepo) Create(ctx context.Context, run *model.BulkRun) error {
	parseErrors, err := json.Marshal(run.ParseErrors)
	if err != nil {
		return fmt.Errorf("パースエラーのシリアライズに失敗しました: %w", err)
	}
	details, err := json.Marshal(run.Result.Details)
	if err != nil {
		return fmt.Errorf("結果詳細のシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bulk_runs (id, item_type, input_line_count, parse_errors,
		                        processed_count, added_count, skipped_count,
		                        not_submitted_count, details, submitted_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.ItemType, run.InputLineCount, parseErrors,
		run.Result.ProcessedCount, run.Result.AddedCount, run.Result.SkippedCount,
		run.NotSubmittedCount, details, run.SubmittedAt, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("実行履歴の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの実行履歴を取得する。見つからない場合はnilを返す。
func (r *PostgresRunRepo) FindByID(ctx context.Context, id string) (*model.BulkRun, error) {
	run := &model.BulkRun{}
	var parseErrors, details []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, item_type, input_line_count, parse_errors,
		        processed_count, added_count, skipped_count,
		        not_submitted_count, details, submitted_at, created_at
		 FROM bulk_runs WHERE id = $1`,
		id,
	).Scan(
		&run.ID, &run.ItemType, &run.InputLineCount, &parseErrors,
		&run.Result.ProcessedCount, &run.Result.AddedCount, &run.Result.SkippedCount,
		&run.NotSubmittedCount, &details, &run.SubmittedAt, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("実行履歴の取得に失敗しました: %w", err)
	}

	if err := json.Unmarshal(parseErrors, &run.ParseErrors); err != nil {
		return nil, fmt.Errorf("パースエラーの復元に失敗しました: %w", err)
	}
	if err := json.Unmarshal(details, &run.Result.Details); err != nil {
		return nil, fmt.Errorf("結果詳細の復元に失敗しました: %w", err)
	}
	return run, nil
}

// DeleteOlderThan は指定日時より古い実行履歴を削除し、削除件数を返す。
func (r *PostgresRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bulk_runs WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("実行履歴の削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}
