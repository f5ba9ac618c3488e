package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chomp/internal/model"
)

// PostgresNeighborhoodRepo はPostgreSQLを使用した近隣地区リポジトリ。
type PostgresNeighborhoodRepo struct {
	db *sql.DB
}

// NewPostgresNeighborhoodRepo はPostgresNeighborhoodRepoを生成する。
func NewPostgresNeighborhoodRepo(db *sql.DB) *PostgresNeighborhoodRepo {
	return &PostgresNeighborhoodRepo{db: db}
}

// ByZipcode は指定郵便番号の地区一覧を返す。該当なしの場合は空スライスを返す。
func (r *PostgresNeighborhoodRepo) ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(zipcode, ''), is_default
		 FROM neighborhoods
		 WHERE zipcode = $1
		 ORDER BY id`,
		zipcode,
	)
	if err != nil {
		return nil, fmt.Errorf("地区の検索に失敗しました: %w", err)
	}
	defer rows.Close()

	neighborhoods := []model.Neighborhood{}
	for rows.Next() {
		var n model.Neighborhood
		if err := rows.Scan(&n.ID, &n.Name, &n.Zipcode, &n.IsDefault); err != nil {
			return nil, fmt.Errorf("地区行の読み取りに失敗しました: %w", err)
		}
		neighborhoods = append(neighborhoods, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("地区行の走査に失敗しました: %w", err)
	}
	return neighborhoods, nil
}

// DefaultID は番兵行（未割り当てレストラン用の既定地区）のIDを返す。
// 番兵行はマイグレーションでシードされるため、存在しない場合はエラー。
func (r *PostgresNeighborhoodRepo) DefaultID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM neighborhoods WHERE is_default LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("既定地区の番兵行が存在しません")
	}
	if err != nil {
		return 0, fmt.Errorf("既定地区の取得に失敗しました: %w", err)
	}
	return id, nil
}
