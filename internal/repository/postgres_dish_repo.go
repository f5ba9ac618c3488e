package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/chomp/internal/model"
)

// PostgresDishRepo はPostgreSQLを使用した料理リポジトリ。
type PostgresDishRepo struct {
	db *sql.DB
}

// NewPostgresDishRepo はPostgresDishRepoを生成する。
func NewPostgresDishRepo(db *sql.DB) *PostgresDishRepo {
	return &PostgresDishRepo{db: db}
}

// FindByNameAndRestaurant は料理名と親レストラン名で料理を検索する
// （大文字小文字を無視）。見つからない場合はnilを返す。
func (r *PostgresDishRepo) FindByNameAndRestaurant(ctx context.Context, dishName, restaurantName string) (*model.Dish, error) {
	dish := &model.Dish{}
	err := r.db.QueryRowContext(ctx,
		`SELECT d.id, d.name, d.restaurant_id, d.tags, d.created_at
		 FROM dishes d
		 JOIN restaurants rest ON rest.id = d.restaurant_id
		 WHERE lower(d.name) = lower($1) AND lower(rest.name) = lower($2)
		 LIMIT 1`,
		dishName, restaurantName,
	).Scan(&dish.ID, &dish.Name, &dish.RestaurantID, pq.Array(&dish.Tags), &dish.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("料理の検索に失敗しました: %w", err)
	}
	return dish, nil
}

// BulkInsert はreadyステータスの料理行を1トランザクションで投入する。
// 親レストランが存在しない行は行単位のエラーとして記録され、
// 他の行の投入を妨げない。
func (r *PostgresDishRepo) BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result := &model.BatchResult{Details: []model.BatchDetail{}}

	for _, item := range batch.Items {
		detail := model.BatchDetail{
			InputName:  item.Name,
			InputType:  item.ItemType,
			LineNumber: item.LineNumber,
		}

		insertedID, err := r.insertOne(ctx, tx, item)
		switch {
		case err != nil:
			detail.Status = model.DetailStatusError
			detail.Reason = err.Error()
			result.SkippedCount++
		case insertedID == 0:
			detail.Status = model.DetailStatusSkipped
			detail.Reason = "同名の料理が既に存在します"
			result.SkippedCount++
		default:
			detail.Status = model.DetailStatusAdded
			detail.InsertedID = &insertedID
			result.AddedCount++
		}

		result.ProcessedCount++
		result.Details = append(result.Details, detail)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return result, nil
}

// insertOne は1行をSAVEPOINTで保護して挿入する。
// 競合でスキップされた場合は(0, nil)を返す。
func (r *PostgresDishRepo) insertOne(ctx context.Context, tx *sql.Tx, item *model.ParsedItem) (int64, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT bulk_item"); err != nil {
		return 0, fmt.Errorf("セーブポイントの作成に失敗しました: %w", err)
	}

	insertedID, err := r.insertDish(ctx, tx, item)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT bulk_item"); rbErr != nil {
			return 0, fmt.Errorf("セーブポイントへの巻き戻しに失敗しました: %w", rbErr)
		}
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT bulk_item"); err != nil {
		return 0, fmt.Errorf("セーブポイントの解放に失敗しました: %w", err)
	}
	return insertedID, nil
}

// insertDish は親レストランの解決と料理の挿入を行う。
func (r *PostgresDishRepo) insertDish(ctx context.Context, tx *sql.Tx, item *model.ParsedItem) (int64, error) {
	// 料理行のLocationTextは親レストラン名
	var restaurantID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM restaurants WHERE lower(name) = lower($1) LIMIT 1`,
		item.LocationText,
	).Scan(&restaurantID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("親レストランが見つかりません: %s", item.LocationText)
	}
	if err != nil {
		return 0, fmt.Errorf("親レストランの検索に失敗しました: %w", err)
	}

	var insertedID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO dishes (name, restaurant_id, tags)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (lower(name), restaurant_id) DO NOTHING
		 RETURNING id`,
		item.Name, restaurantID, pq.Array(item.Tags),
	).Scan(&insertedID)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("料理の挿入に失敗しました: %w", err)
	}
	return insertedID, nil
}
