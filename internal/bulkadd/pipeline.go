package bulkadd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/chomp/internal/metrics"
	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/parser"
	"github.com/hitoshi/chomp/internal/places"
	"github.com/hitoshi/chomp/internal/repository"
	"github.com/hitoshi/chomp/internal/security"
)

// PlaceResolver は場所解決のインターフェース。
// places.Resolverを抽象化してテスタビリティを向上させる。
type PlaceResolver interface {
	Resolve(ctx context.Context, item *model.ParsedItem) (*places.Resolution, error)
}

// NeighborhoodEnricher は地区付与のインターフェース。
type NeighborhoodEnricher interface {
	Enrich(ctx context.Context, item *model.ParsedItem, place *model.ResolvedPlace) model.NeighborhoodRef
}

// WebsiteTitleFetcher はウェブサイトのタイトル取得のインターフェース。
type WebsiteTitleFetcher interface {
	FetchTitle(ctx context.Context, rawURL string) (string, error)
}

// Pipeline は一括追加の4ステージ処理を統括する。
// パース → 場所解決 → 地区付与 → 重複チェック付き投入の順に実行し、
// 行単位の失敗は実行全体を中断しない。
// 場所解決は外部APIのレート制限を尊重するため逐次実行とする。
type Pipeline struct {
	sanitizer security.TextSanitizerService
	resolver  PlaceResolver
	enricher  NeighborhoodEnricher
	titles    WebsiteTitleFetcher
	checker   *Checker
	submitter *Submitter
	runs      repository.RunRepository
	limiter   *rate.Limiter
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	maxItems  int
}

// PipelineDeps はPipelineの依存関係をまとめる。
type PipelineDeps struct {
	Sanitizer security.TextSanitizerService
	Resolver  PlaceResolver
	Enricher  NeighborhoodEnricher
	// Titles は任意。nilの場合はウェブサイトタイトルの取得を行わない。
	Titles    WebsiteTitleFetcher
	Checker   *Checker
	Submitter *Submitter
	Runs      repository.RunRepository
	Limiter   *rate.Limiter
	Metrics   metrics.MetricsCollector
	Logger    *slog.Logger
	MaxItems  int
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sanitizer: deps.Sanitizer,
		resolver:  deps.Resolver,
		enricher:  deps.Enricher,
		titles:    deps.Titles,
		checker:   deps.Checker,
		submitter: deps.Submitter,
		runs:      deps.Runs,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		maxItems:  deps.MaxItems,
	}
}

// Run は貼り付けテキスト1件分のパイプラインを実行する。
// delimiterは行内フィールドの区切り文字（"|" または ";"）。
// 空の場合はパーサーの既定値（";"）を使用する。
// 戻り値のBulkRunは実行全体の結果（行ごとの詳細とパースエラーを含む）。
// 入力全体に関わる検証エラー（空入力、上限超過）のみがエラーとして返り、
// 行単位の失敗は結果の中に記録される。
func (p *Pipeline) Run(ctx context.Context, itemType model.ItemType, rawText, delimiter string) (*model.BulkRun, error) {
	if itemType != model.ItemTypeRestaurant && itemType != model.ItemTypeDish {
		return nil, model.NewInvalidItemTypeError(string(itemType))
	}

	sanitized := p.sanitizer.Sanitize(rawText)
	parsed, parseErrors := parser.Parse(sanitized, parser.Options{Delimiter: delimiter})

	if len(parsed) == 0 && len(parseErrors) == 0 {
		return nil, model.NewEmptyInputError()
	}
	if len(parsed) > p.maxItems {
		return nil, model.NewBulkLimitExceededError(len(parsed), p.maxItems)
	}

	items := make([]*model.ParsedItem, len(parsed))
	for i := range parsed {
		items[i] = &parsed[i]
	}

	for _, item := range items {
		if err := p.processItem(ctx, itemType, item); err != nil {
			return nil, err
		}
	}

	return p.finish(ctx, itemType, items, parseErrors, len(parsed)+len(parseErrors))
}

// SubmitPrepared は事前に構造化済みのアイテム列を検証・投入する。
// 貼り付けテキストのパースと場所解決を省略し、重複チェック付き投入のみを行う。
// 場所解決まで済んだデータを直接投入するクライアント向けの経路。
func (p *Pipeline) SubmitPrepared(ctx context.Context, itemType model.ItemType, items []*model.ParsedItem) (*model.BulkRun, error) {
	if itemType != model.ItemTypeRestaurant && itemType != model.ItemTypeDish {
		return nil, model.NewInvalidItemTypeError(string(itemType))
	}
	if len(items) == 0 {
		return nil, model.NewEmptyInputError()
	}
	if len(items) > p.maxItems {
		return nil, model.NewBulkLimitExceededError(len(items), p.maxItems)
	}

	for _, item := range items {
		if !item.Advanceable() {
			item.MarkError("名前または種別が不正なため処理をスキップしました")
			continue
		}
		if item.ItemType != itemType {
			item.MarkError("リクエストの種別と行の種別が一致しません")
			continue
		}
		item.Status = model.ItemStatusProcessed
	}

	return p.finish(ctx, itemType, items, nil, len(items))
}

// finish は重複チェック・投入・メトリクス記録・履歴保存の共通後段を実行する。
func (p *Pipeline) finish(ctx context.Context, itemType model.ItemType, items []*model.ParsedItem, parseErrors []model.ParseError, inputLineCount int) (*model.BulkRun, error) {
	p.checker.Annotate(ctx, itemType, items)

	// 投入開始以降はキャンセル不可。クライアント切断で
	// トランザクションを途中で巻き戻さず、履歴の保存まで完了させる。
	submitCtx := context.WithoutCancel(ctx)

	result, notSubmitted, err := p.submitter.Submit(submitCtx, itemType, items)
	if err != nil {
		return nil, model.NewTransactionFailedError(err.Error())
	}

	p.metrics.RecordItemsSubmitted(string(model.DetailStatusAdded), result.AddedCount)
	p.metrics.RecordItemsSubmitted(string(model.DetailStatusSkipped), result.SkippedCount)
	p.metrics.RecordRunCompleted(string(itemType))

	now := time.Now()
	run := &model.BulkRun{
		ID:                uuid.NewString(),
		ItemType:          itemType,
		InputLineCount:    inputLineCount,
		ParseErrors:       parseErrors,
		Result:            *result,
		NotSubmittedCount: notSubmitted,
		SubmittedAt:       now,
		CreatedAt:         now,
	}

	// 履歴の保存失敗は結果自体を失わせない
	if err := p.runs.Create(submitCtx, run); err != nil {
		p.logger.Warn("実行履歴の保存に失敗しました",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}

	return run, nil
}

// processItem は1行分の個別処理（場所解決と地区付与）を行う。
// 行単位の失敗はアイテムをエラー状態にして戻り値はnil。
// コンテキストのキャンセルのみがエラーとして返る。
func (p *Pipeline) processItem(ctx context.Context, itemType model.ItemType, item *model.ParsedItem) error {
	if !item.Advanceable() {
		item.MarkError("名前または種別が不正なため処理をスキップしました")
		return nil
	}
	if item.ItemType != itemType {
		item.MarkError("リクエストの種別と行の種別が一致しません")
		return nil
	}

	item.Status = model.ItemStatusProcessing

	if itemType == model.ItemTypeRestaurant {
		// 外部APIのレート制限を尊重するため呼び出し間隔を空ける
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := p.resolvePlace(ctx, item); err != nil {
			return err
		}
		if item.Status == model.ItemStatusError {
			return nil
		}
	}

	item.Status = model.ItemStatusProcessed
	return nil
}

// resolvePlace は場所解決と地区付与、ウェブサイトタイトルの取得を行う。
func (p *Pipeline) resolvePlace(ctx context.Context, item *model.ParsedItem) error {
	start := time.Now()
	resolution, err := p.resolver.Resolve(ctx, item)
	p.metrics.RecordLookupLatency(time.Since(start))

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, places.ErrNoPlacesFound) {
			p.metrics.RecordLookupFailure("not_found")
			item.MarkError("この名前と場所に一致する場所が見つかりませんでした")
			return nil
		}
		p.metrics.RecordLookupFailure("lookup_error")
		p.logger.Warn("場所解決に失敗しました",
			slog.Int("line_number", item.LineNumber),
			slog.String("name", item.Name),
			slog.String("error", err.Error()),
		)
		item.MarkError("場所の検索に失敗しました")
		return nil
	}

	p.metrics.RecordLookupSuccess()
	item.Place = resolution.Selected
	item.Candidates = resolution.Candidates
	if resolution.Ambiguous {
		item.StatusMessage = "複数候補から先頭を自動選択しました"
	}

	item.Neighborhood = p.enricher.Enrich(ctx, item, item.Place)

	// タイトル取得はベストエフォート。失敗しても行の処理は継続する。
	if p.titles != nil && item.Place.Website != "" {
		title, err := p.titles.FetchTitle(ctx, item.Place.Website)
		if err != nil {
			p.logger.Info("ウェブサイトタイトルの取得に失敗しました",
				slog.Int("line_number", item.LineNumber),
				slog.String("website", item.Place.Website),
				slog.String("error", err.Error()),
			)
		} else {
			item.Place.WebsiteTitle = title
		}
	}

	return nil
}
