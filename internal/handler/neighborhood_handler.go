package handler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chomp/internal/model"
)

// NeighborhoodFinderInterface は地区ハンドラーが必要とするインターフェース。
type NeighborhoodFinderInterface interface {
	// ByZipcode は指定郵便番号の地区一覧を返す。該当なしの場合は空スライスを返す。
	ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error)
}

// NeighborhoodHandler は近隣地区照会のHTTPハンドラー。
type NeighborhoodHandler struct {
	finder NeighborhoodFinderInterface
}

// NewNeighborhoodHandler はNeighborhoodHandlerを生成する。
func NewNeighborhoodHandler(finder NeighborhoodFinderInterface) *NeighborhoodHandler {
	return &NeighborhoodHandler{finder: finder}
}

// zipcodePattern は受け付ける郵便番号の形式。
// 米国5桁、ZIP+4、および数字とハイフンからなる一般的な形式を許容する。
var zipcodePattern = regexp.MustCompile(`^[0-9]{3,7}(-[0-9]{1,4})?$`)

// neighborhoodResponse は地区のAPIレスポンス。
type neighborhoodResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Zipcode string `json:"zipcode,omitempty"`
}

// byZipcodeResponse は郵便番号照会のレスポンス。
type byZipcodeResponse struct {
	Data []neighborhoodResponse `json:"data"`
}

// ByZipcode は郵便番号に対応する地区一覧を返す。
// GET /api/neighborhoods/by-zipcode/{zipcode}
// 該当地区がない場合も200で空リストを返す（欠損は正常系）。
func (h *NeighborhoodHandler) ByZipcode(w http.ResponseWriter, r *http.Request) {
	zipcode := chi.URLParam(r, "zipcode")
	if !zipcodePattern.MatchString(zipcode) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidZipcodeError(zipcode))
		return
	}

	neighborhoods, err := h.finder.ByZipcode(r.Context(), zipcode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := byZipcodeResponse{
		Data: []neighborhoodResponse{},
	}
	for _, n := range neighborhoods {
		resp.Data = append(resp.Data, neighborhoodResponse{
			ID:      n.ID,
			Name:    n.Name,
			Zipcode: n.Zipcode,
		})
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
