package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chomp/internal/bulkadd"
	"github.com/hitoshi/chomp/internal/model"
)

// BulkAddServiceInterface は一括追加ハンドラーが必要とするサービスインターフェース。
type BulkAddServiceInterface interface {
	// Run は貼り付けテキスト1件分のパイプラインを実行する。
	// delimiterは行内フィールドの区切り文字。空の場合は既定値を使用する。
	Run(ctx context.Context, itemType model.ItemType, rawText, delimiter string) (*model.BulkRun, error)

	// SubmitPrepared は構造化済みアイテム列をパース・場所解決を省略して投入する。
	SubmitPrepared(ctx context.Context, itemType model.ItemType, items []*model.ParsedItem) (*model.BulkRun, error)
}

// CheckServiceInterface は重複チェックハンドラーが必要とするサービスインターフェース。
type CheckServiceInterface interface {
	// Check は名前と場所の組み合わせリストに対する重複チェックを実行する。
	Check(ctx context.Context, itemType model.ItemType, entries []bulkadd.CheckEntry) ([]bulkadd.CheckResult, error)
}

// BulkAddHandler は一括追加と重複チェックのHTTPハンドラー。
type BulkAddHandler struct {
	service BulkAddServiceInterface
	checker CheckServiceInterface
}

// NewBulkAddHandler はBulkAddHandlerを生成する。
func NewBulkAddHandler(service BulkAddServiceInterface, checker CheckServiceInterface) *BulkAddHandler {
	return &BulkAddHandler{
		service: service,
		checker: checker,
	}
}

// bulkAddRequest は一括追加リクエストのボディ。
// textとitemsのどちらか一方を指定する。textは貼り付けテキストの
// フルパイプラインを実行し、itemsは構造化済みアイテムを直接投入する。
type bulkAddRequest struct {
	Text string `json:"text"`

	// Delimiter は行内フィールドの区切り文字（"|" または ";"）。
	// 省略時は";"として扱う。
	Delimiter string `json:"delimiter"`

	Items []bulkAddItemBody `json:"items"`
}

// bulkAddItemBody は構造化済みアイテム1件のリクエスト表現。
type bulkAddItemBody struct {
	LineNumber       int      `json:"line_number"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Location         string   `json:"location"`
	Tags             []string `json:"tags"`
	PlaceID          string   `json:"place_id"`
	Address          string   `json:"address"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	PostalCode       string   `json:"postal_code"`
	Phone            string   `json:"phone"`
	Website          string   `json:"website"`
	NeighborhoodID   int64    `json:"neighborhood_id"`
	NeighborhoodName string   `json:"neighborhood_name"`
}

// toParsedItem はリクエスト表現をドメインのParsedItemに変換する。
func (b *bulkAddItemBody) toParsedItem() *model.ParsedItem {
	item := &model.ParsedItem{
		LineNumber:   b.LineNumber,
		Name:         b.Name,
		ItemType:     model.ItemType(b.Type),
		LocationText: b.Location,
		Tags:         b.Tags,
		Status:       model.ItemStatusPending,
	}

	// 住所かplace_idのいずれかがあれば解決済みの場所として扱う
	if b.Address != "" || b.PlaceID != "" {
		item.Place = &model.ResolvedPlace{
			PlaceID:          b.PlaceID,
			FormattedAddress: b.Address,
			Latitude:         b.Latitude,
			Longitude:        b.Longitude,
			PostalCode:       b.PostalCode,
			Phone:            b.Phone,
			Website:          b.Website,
		}
	}

	if b.NeighborhoodID > 0 {
		item.Neighborhood = model.AssignedNeighborhood(b.NeighborhoodID, b.NeighborhoodName)
	} else {
		item.Neighborhood = model.UnassignedNeighborhood()
	}

	return item
}

// checkExistingRequest は重複チェックリクエストのボディ。
// itemsはオブジェクト形式のラッパーのみを受け付ける。
type checkExistingRequest struct {
	Items []bulkadd.CheckEntry `json:"items"`
}

// bulkRunResponse は一括追加実行結果のAPIレスポンス。
type bulkRunResponse struct {
	ID                string             `json:"id"`
	ItemType          string             `json:"item_type"`
	InputLineCount    int                `json:"input_line_count"`
	ParseErrors       []model.ParseError `json:"parse_errors"`
	Result            model.BatchResult  `json:"result"`
	NotSubmittedCount int                `json:"not_submitted_count"`
	SubmittedAt       time.Time          `json:"submitted_at"`
	CreatedAt         time.Time          `json:"created_at"`
}

// BulkAdd は一括追加を処理する。
// POST /api/admin/bulk-add/{type}
func (h *BulkAddHandler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	itemType, ok := itemTypeFromURL(w, r)
	if !ok {
		return
	}

	var req bulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Delimiter != "" && req.Delimiter != ";" && req.Delimiter != "|" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(`delimiterは";"または"|"を指定してください`))
		return
	}

	var run *model.BulkRun
	var err error
	if len(req.Items) > 0 {
		// 構造化済みアイテムの直接投入経路
		items := make([]*model.ParsedItem, 0, len(req.Items))
		for i := range req.Items {
			body := req.Items[i]
			if body.Type == "" {
				body.Type = string(itemType)
			}
			items = append(items, body.toParsedItem())
		}
		run, err = h.service.SubmitPrepared(r.Context(), itemType, items)
	} else {
		run, err = h.service.Run(r.Context(), itemType, req.Text, req.Delimiter)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBulkRunResponse(run))
}

// CheckExisting は重複チェックを処理する。
// POST /api/admin/check-existing/{type}
//
// リクエストボディは {"items": [...]} のオブジェクト形式のみを受け付ける。
// 素の配列を送信した場合は対処方法を含む400エラーを返す。
func (h *BulkAddHandler) CheckExisting(w http.ResponseWriter, r *http.Request) {
	itemType, ok := itemTypeFromURL(w, r)
	if !ok {
		return
	}

	var req checkExistingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Items == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("itemsフィールドがありません"))
		return
	}

	results, err := h.checker.Check(r.Context(), itemType, req.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if results == nil {
		results = []bulkadd.CheckResult{}
	}

	// レスポンスは入力順の配列。ヒットしなかった行もexisting: nullで返す
	writeJSONResponse(w, http.StatusOK, results)
}

// itemTypeFromURL はURLパスの{type}を検証済みのItemTypeに変換する。
// 不正な種別の場合はエラーレスポンスを書き込みfalseを返す。
func itemTypeFromURL(w http.ResponseWriter, r *http.Request) (model.ItemType, bool) {
	raw := chi.URLParam(r, "type")
	switch raw {
	case string(model.ItemTypeRestaurant):
		return model.ItemTypeRestaurant, true
	case string(model.ItemTypeDish):
		return model.ItemTypeDish, true
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidItemTypeError(raw))
		return "", false
	}
}

// toBulkRunResponse はBulkRunをAPIレスポンスに変換する。
func toBulkRunResponse(run *model.BulkRun) bulkRunResponse {
	parseErrors := run.ParseErrors
	if parseErrors == nil {
		parseErrors = []model.ParseError{}
	}
	return bulkRunResponse{
		ID:                run.ID,
		ItemType:          string(run.ItemType),
		InputLineCount:    run.InputLineCount,
		ParseErrors:       parseErrors,
		Result:            run.Result,
		NotSubmittedCount: run.NotSubmittedCount,
		SubmittedAt:       run.SubmittedAt,
		CreatedAt:         run.CreatedAt,
	}
}
