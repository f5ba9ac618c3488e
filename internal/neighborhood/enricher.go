// Package neighborhood は解決済みの場所に対する地区の付与を提供する。
package neighborhood

import (
	"context"
	"log/slog"

	"github.com/hitoshi/chomp/internal/model"
)

// Finder は郵便番号から地区を検索するインターフェース。
type Finder interface {
	ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error)
}

// Enricher は解決済みの場所に地区を付与する。
// 付与はベストエフォートであり、失敗してもアイテムをエラーにしない。
// 最悪の場合は未割り当て(デフォルト地区)となる。
type Enricher struct {
	finder Finder
	logger *slog.Logger
}

// NewEnricher はEnricherの新しいインスタンスを生成する。
func NewEnricher(finder Finder, logger *slog.Logger) *Enricher {
	return &Enricher{
		finder: finder,
		logger: logger,
	}
}

// Enrich は場所の郵便番号から地区参照を決定する。
// 郵便番号がない、検索に失敗した、または該当地区がない場合は
// 未割り当ての参照を返す。エラーは返さない。
func (e *Enricher) Enrich(ctx context.Context, item *model.ParsedItem, place *model.ResolvedPlace) model.NeighborhoodRef {
	if place == nil || place.PostalCode == "" {
		return model.UnassignedNeighborhood()
	}

	neighborhoods, err := e.finder.ByZipcode(ctx, place.PostalCode)
	if err != nil {
		e.logger.Warn("地区検索に失敗したため未割り当てとします",
			slog.Int("line_number", item.LineNumber),
			slog.String("zipcode", place.PostalCode),
			slog.String("error", err.Error()),
		)
		return model.UnassignedNeighborhood()
	}

	if len(neighborhoods) == 0 {
		e.logger.Info("郵便番号に対応する地区がありません",
			slog.Int("line_number", item.LineNumber),
			slog.String("zipcode", place.PostalCode),
		)
		return model.UnassignedNeighborhood()
	}

	// 複数地区が同じ郵便番号を持つ場合は先頭を採用する。
	selected := neighborhoods[0]
	return model.AssignedNeighborhood(selected.ID, selected.Name)
}
