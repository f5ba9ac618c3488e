package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chomp/internal/model"
)

// RestaurantSearchInterface はレストラン検索ハンドラーが必要とするインターフェース。
type RestaurantSearchInterface interface {
	// SearchByName は名前の部分一致でレストランを検索する。
	SearchByName(ctx context.Context, query string, limit int) ([]*model.Restaurant, error)
}

// RestaurantsHandler は登録済みレストラン検索のHTTPハンドラー。
// オペレーターが料理行の親レストラン名を確認する用途を想定する。
type RestaurantsHandler struct {
	searcher RestaurantSearchInterface
}

// NewRestaurantsHandler はRestaurantsHandlerを生成する。
func NewRestaurantsHandler(searcher RestaurantSearchInterface) *RestaurantsHandler {
	return &RestaurantsHandler{searcher: searcher}
}

// searchResultLimit は1回の検索で返す最大件数。
const searchResultLimit = 20

// restaurantResponse はレストランのAPIレスポンス。
type restaurantResponse struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	City    string   `json:"city,omitempty"`
	Address string   `json:"address,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// restaurantSearchResponse はレストラン検索のレスポンス。
type restaurantSearchResponse struct {
	Data []restaurantResponse `json:"data"`
}

// Search は登録済みレストランの名前検索を処理する。
// GET /api/restaurants/search?query=...
func (h *RestaurantsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("queryパラメータが空です"))
		return
	}

	restaurants, err := h.searcher.SearchByName(r.Context(), query, searchResultLimit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := restaurantSearchResponse{
		Data: []restaurantResponse{},
	}
	for _, restaurant := range restaurants {
		resp.Data = append(resp.Data, restaurantResponse{
			ID:      restaurant.ID,
			Name:    restaurant.Name,
			City:    restaurant.CityName,
			Address: restaurant.Address,
			Tags:    restaurant.Tags,
		})
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
