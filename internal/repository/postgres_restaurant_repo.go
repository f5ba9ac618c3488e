package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/chomp/internal/model"
)

// PostgresRestaurantRepo はPostgreSQLを使用したレストランリポジトリ。
// 未割り当ての地区参照を番兵行に解決するため地区リポジトリに依存する。
type PostgresRestaurantRepo struct {
	db            *sql.DB
	neighborhoods NeighborhoodRepository
}

// NewPostgresRestaurantRepo はPostgresRestaurantRepoを生成する。
func NewPostgresRestaurantRepo(db *sql.DB, neighborhoods NeighborhoodRepository) *PostgresRestaurantRepo {
	return &PostgresRestaurantRepo{db: db, neighborhoods: neighborhoods}
}

// FindByNameAndCity は名前と都市名でレストランを検索する（大文字小文字を無視）。
// 都市名が空の場合は名前のみで検索する。見つからない場合はnilを返す。
func (r *PostgresRestaurantRepo) FindByNameAndCity(ctx context.Context, name, cityName string) (*model.Restaurant, error) {
	query := `SELECT r.id, r.name, COALESCE(c.name, ''), r.neighborhood_id,
	                 r.address, r.latitude, r.longitude, r.postal_code,
	                 r.phone, r.website, r.website_title, r.place_id,
	                 r.tags, r.created_at, r.updated_at
	          FROM restaurants r
	          LEFT JOIN cities c ON c.id = r.city_id
	          WHERE lower(r.name) = lower($1)`
	args := []any{name}
	if cityName != "" {
		query += ` AND lower(c.name) = lower($2)`
		args = append(args, cityName)
	}
	query += ` LIMIT 1`

	restaurant, err := scanRestaurant(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レストランの検索に失敗しました: %w", err)
	}
	return restaurant, nil
}

// SearchByName は名前の部分一致でレストランを検索する。
func (r *PostgresRestaurantRepo) SearchByName(ctx context.Context, query string, limit int) ([]*model.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, COALESCE(c.name, ''), r.neighborhood_id,
		        r.address, r.latitude, r.longitude, r.postal_code,
		        r.phone, r.website, r.website_title, r.place_id,
		        r.tags, r.created_at, r.updated_at
		 FROM restaurants r
		 LEFT JOIN cities c ON c.id = r.city_id
		 WHERE r.name ILIKE '%' || $1 || '%'
		 ORDER BY r.name
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("レストランの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var restaurants []*model.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("レストラン行の読み取りに失敗しました: %w", err)
		}
		restaurants = append(restaurants, restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レストラン行の走査に失敗しました: %w", err)
	}
	return restaurants, nil
}

// BulkInsert はreadyステータスのレストラン行を1トランザクションで投入する。
// 行単位の失敗はSAVEPOINTで巻き戻し、トランザクション全体は継続する。
// 一意制約の競合はON CONFLICT DO NOTHINGによりスキップとして記録される。
func (r *PostgresRestaurantRepo) BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error) {
	// 未割り当ての地区参照は番兵行のIDに解決する。
	// 番兵行はマイグレーションでシードされ変更されないため、
	// トランザクション外での読み取りで問題ない。
	defaultNeighborhoodID, err := r.neighborhoods.DefaultID(ctx)
	if err != nil {
		return nil, err
	}

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

		insertedID, err := r.insertOne(ctx, tx, item, defaultNeighborhoodID)
		switch {
		case err != nil:
			detail.Status = model.DetailStatusError
			detail.Reason = err.Error()
			result.SkippedCount++
		case insertedID == 0:
			detail.Status = model.DetailStatusSkipped
			detail.Reason = "同名のレストランが既に存在します"
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
func (r *PostgresRestaurantRepo) insertOne(ctx context.Context, tx *sql.Tx, item *model.ParsedItem, defaultNeighborhoodID int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT bulk_item"); err != nil {
		return 0, fmt.Errorf("セーブポイントの作成に失敗しました: %w", err)
	}

	insertedID, err := r.insertRestaurant(ctx, tx, item, defaultNeighborhoodID)
	if err != nil {
		// 行単位の失敗はこの行の変更だけを巻き戻す
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

// insertRestaurant は都市のget-or-createとレストランの挿入を行う。
func (r *PostgresRestaurantRepo) insertRestaurant(ctx context.Context, tx *sql.Tx, item *model.ParsedItem, defaultNeighborhoodID int64) (int64, error) {
	var cityID sql.NullInt64
	if item.LocationText != "" {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO cities (name) VALUES ($1)
			 ON CONFLICT (lower(name)) DO UPDATE SET name = cities.name
			 RETURNING id`,
			item.LocationText,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("都市の取得または作成に失敗しました: %w", err)
		}
		cityID = sql.NullInt64{Int64: id, Valid: true}
	}

	neighborhoodID := defaultNeighborhoodID
	if item.Neighborhood.Assigned() {
		neighborhoodID = item.Neighborhood.ID()
	}

	place := item.Place
	if place == nil {
		return 0, fmt.Errorf("場所が解決されていません")
	}

	var insertedID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO restaurants (name, city_id, neighborhood_id, address,
		                          latitude, longitude, postal_code, phone,
		                          website, website_title, place_id, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (lower(name), city_id) DO NOTHING
		 RETURNING id`,
		item.Name, cityID, neighborhoodID, place.FormattedAddress,
		place.Latitude, place.Longitude, nullString(place.PostalCode),
		nullString(place.Phone), nullString(place.Website),
		nullString(place.WebsiteTitle), nullString(place.PlaceID),
		pq.Array(item.Tags),
	).Scan(&insertedID)

	if err == sql.ErrNoRows {
		// 一意制約の競合によるスキップ
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("レストランの挿入に失敗しました: %w", err)
	}
	return insertedID, nil
}

// ListNeedingNeighborhoodBackfill は番兵地区のままのレストランのうち、
// 郵便番号を持つものを作成日時の古い順に返す。
func (r *PostgresRestaurantRepo) ListNeedingNeighborhoodBackfill(ctx context.Context, limit int) ([]*model.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, COALESCE(c.name, ''), r.neighborhood_id,
		        r.address, r.latitude, r.longitude, r.postal_code,
		        r.phone, r.website, r.website_title, r.place_id,
		        r.tags, r.created_at, r.updated_at
		 FROM restaurants r
		 LEFT JOIN cities c ON c.id = r.city_id
		 JOIN neighborhoods n ON n.id = r.neighborhood_id
		 WHERE n.is_default AND r.postal_code IS NOT NULL AND r.postal_code <> ''
		 ORDER BY r.created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("地区未割り当てレストランの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var restaurants []*model.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("レストラン行の読み取りに失敗しました: %w", err)
		}
		restaurants = append(restaurants, restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レストラン行の走査に失敗しました: %w", err)
	}
	return restaurants, nil
}

// UpdateNeighborhood はレストランの地区を更新する。
func (r *PostgresRestaurantRepo) UpdateNeighborhood(ctx context.Context, restaurantID, neighborhoodID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE restaurants SET neighborhood_id = $2, updated_at = $3 WHERE id = $1`,
		restaurantID, neighborhoodID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("レストランの地区更新に失敗しました: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通のScanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRestaurant は1行分のレストランカラムを読み取る。
func scanRestaurant(row rowScanner) (*model.Restaurant, error) {
	restaurant := &model.Restaurant{}
	var address, postalCode, phone, website, websiteTitle, placeID sql.NullString
	var latitude, longitude sql.NullFloat64

	err := row.Scan(
		&restaurant.ID, &restaurant.Name, &restaurant.CityName,
		&restaurant.NeighborhoodID,
		&address, &latitude, &longitude, &postalCode,
		&phone, &website, &websiteTitle, &placeID,
		pq.Array(&restaurant.Tags),
		&restaurant.CreatedAt, &restaurant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	restaurant.Address = nullStringValue(address)
	restaurant.PostalCode = nullStringValue(postalCode)
	restaurant.Phone = nullStringValue(phone)
	restaurant.Website = nullStringValue(website)
	restaurant.WebsiteTitle = nullStringValue(websiteTitle)
	restaurant.PlaceID = nullStringValue(placeID)
	restaurant.Latitude = latitude.Float64
	restaurant.Longitude = longitude.Float64

	return restaurant, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
