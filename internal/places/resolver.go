package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/chomp/internal/model"
)

// PlaceSearcher は場所検索APIのインターフェース。
// テスト時にモックに差し替え可能。
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// ErrNoPlacesFound は検索結果が0件だったことを示す。
// この名前と場所では場所を特定できないため、行は終端のエラー状態となる。
var ErrNoPlacesFound = errors.New("この名前と場所に一致する場所が見つかりませんでした")

// Resolution は1アイテムの場所解決の結果を表す。
type Resolution struct {
	// Candidates は検索が返した全候補。
	Candidates []model.PlaceCandidate
	// Selected は選択された候補の詳細。
	Selected *model.ResolvedPlace
	// Ambiguous は複数候補から先頭を自動選択したことを示す。
	// 行の投入は妨げないが、結果詳細でオペレーターに提示される。
	Ambiguous bool
}

// Resolver はParsedItemの場所解決を行う。
// 検索クエリの構築、候補の選択、詳細取得を1アイテム分まとめて実行する。
// この層では自動リトライを行わない。
type Resolver struct {
	searcher PlaceSearcher
	logger   *slog.Logger
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(searcher PlaceSearcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		logger:   logger,
	}
}

// Resolve はアイテムの名前と場所から場所を解決する。
// 0件の場合はErrNoPlacesFound、1件の場合は自動選択、
// 複数件の場合は先頭を選択してAmbiguousフラグを立てる。
// 検索APIは関連度順で候補を返すため先頭選択を既定とし、
// 曖昧さは結果詳細としてオペレーターに可視化する。
func (r *Resolver) Resolve(ctx context.Context, item *model.ParsedItem) (*Resolution, error) {
	query := BuildQuery(item.Name, item.LocationText)

	results, err := r.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("場所検索に失敗しました: %w", err)
	}

	if len(results) == 0 {
		r.logger.Info("場所検索が0件でした",
			slog.Int("line_number", item.LineNumber),
			slog.String("query", query),
		)
		return nil, ErrNoPlacesFound
	}

	candidates := make([]model.PlaceCandidate, 0, len(results))
	for _, res := range results {
		candidates = append(candidates, model.PlaceCandidate{
			PlaceID:     res.PlaceID,
			Name:        res.Name,
			Description: res.Description,
		})
	}

	selected := results[0]
	ambiguous := len(results) > 1
	if ambiguous {
		r.logger.Info("複数の場所候補から先頭を自動選択しました",
			slog.Int("line_number", item.LineNumber),
			slog.String("query", query),
			slog.Int("candidate_count", len(results)),
			slog.String("selected_place_id", selected.PlaceID),
		)
	}

	details, err := r.searcher.Details(ctx, selected.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("場所詳細の取得に失敗しました: %w", err)
	}

	resolved := &model.ResolvedPlace{
		PlaceID:          details.PlaceID,
		FormattedAddress: details.FormattedAddress,
		Latitude:         details.Latitude,
		Longitude:        details.Longitude,
		PostalCode:       details.PostalCode,
		Phone:            details.Phone,
		Website:          details.Website,
	}

	return &Resolution{
		Candidates: candidates,
		Selected:   resolved,
		Ambiguous:  ambiguous,
	}, nil
}

// BuildQuery は名前と場所テキストから検索クエリを構築する。
// 場所テキストがある場合は "名前, 場所" の形式で連結する。
func BuildQuery(name, locationText string) string {
	if locationText == "" {
		return name
	}
	return name + ", " + locationText
}
