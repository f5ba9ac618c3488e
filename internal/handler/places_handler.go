package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/places"
)

// PlaceSearchInterface は場所検索ハンドラーが必要とするインターフェース。
type PlaceSearchInterface interface {
	// Search は場所検索APIに問い合わせ、候補一覧を返す。
	Search(ctx context.Context, query string) ([]places.SearchResult, error)
}

// PlacesHandler は場所検索のプロキシHTTPハンドラー。
// オペレーターUIが一括追加前の下調べに使用する。
type PlacesHandler struct {
	searcher PlaceSearchInterface
}

// NewPlacesHandler はPlacesHandlerを生成する。
func NewPlacesHandler(searcher PlaceSearchInterface) *PlacesHandler {
	return &PlacesHandler{searcher: searcher}
}

// placeCandidateResponse は場所候補のAPIレスポンス。
type placeCandidateResponse struct {
	PlaceID     string `json:"place_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// placeSearchResponse は場所検索のレスポンス。
type placeSearchResponse struct {
	Query      string                   `json:"query"`
	Candidates []placeCandidateResponse `json:"candidates"`
}

// Search は場所検索を処理する。
// GET /api/places/search?query=...
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("queryパラメータが空です"))
		return
	}

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewPlaceLookupFailedError(err.Error()))
		return
	}

	resp := placeSearchResponse{
		Query:      query,
		Candidates: []placeCandidateResponse{},
	}
	for _, res := range results {
		resp.Candidates = append(resp.Candidates, placeCandidateResponse{
			PlaceID:     res.PlaceID,
			Name:        res.Name,
			Description: res.Description,
		})
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
