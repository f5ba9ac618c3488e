package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/chomp/internal/model"
)

// mockNeighborhoodFinder はNeighborhoodFinderInterfaceのモック実装。
type mockNeighborhoodFinder struct {
	byZipcodeFn func(ctx context.Context, zipcode string) ([]model.Neighborhood, error)
}

func (m *mockNeighborhoodFinder) ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
	if m.byZipcodeFn != nil {
		return m.byZipcodeFn(ctx, zipcode)
	}
	return []model.Neighborhood{}, nil
}

func TestNeighborhoodHandler_ByZipcode_Success(t *testing.T) {
	finder := &mockNeighborhoodFinder{
		byZipcodeFn: func(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
			if zipcode != "10003" {
				t.Errorf("zipcode = %q, want %q", zipcode, "10003")
			}
			return []model.Neighborhood{
				{ID: 7, Name: "East Village", Zipcode: "10003"},
				{ID: 8, Name: "Greenwich Village", Zipcode: "10003"},
			}, nil
		},
	}
	h := NewNeighborhoodHandler(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/neighborhoods/by-zipcode/10003", nil)
	req = withChiURLParam(req, "zipcode", "10003")
	w := httptest.NewRecorder()

	h.ByZipcode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got byZipcodeResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(got.Data))
	}
	if got.Data[0].ID != 7 || got.Data[0].Name != "East Village" {
		t.Errorf("Data[0] = %+v", got.Data[0])
	}
}

// 該当地区がない郵便番号も200で空リストを返す。
func TestNeighborhoodHandler_ByZipcode_NoMatchReturnsEmptyList(t *testing.T) {
	h := NewNeighborhoodHandler(&mockNeighborhoodFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/neighborhoods/by-zipcode/99999", nil)
	req = withChiURLParam(req, "zipcode", "99999")
	w := httptest.NewRecorder()

	h.ByZipcode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	// dataはnullではなく空配列で返す
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("body = %q, want empty data array", w.Body.String())
	}
}

func TestNeighborhoodHandler_ByZipcode_InvalidFormat(t *testing.T) {
	called := false
	finder := &mockNeighborhoodFinder{
		byZipcodeFn: func(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
			called = true
			return nil, nil
		},
	}
	h := NewNeighborhoodHandler(finder)

	for _, zipcode := range []string{"abcde", "12", "1234567890", "10003-", "--"} {
		req := httptest.NewRequest(http.MethodGet, "/api/neighborhoods/by-zipcode/"+zipcode, nil)
		req = withChiURLParam(req, "zipcode", zipcode)
		w := httptest.NewRecorder()

		h.ByZipcode(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("zipcode %q: status = %d, want %d", zipcode, w.Code, http.StatusBadRequest)
		}
	}
	if called {
		t.Error("finder should not be queried for invalid zipcodes")
	}
}

func TestNeighborhoodHandler_ByZipcode_ZipPlusFour(t *testing.T) {
	finder := &mockNeighborhoodFinder{
		byZipcodeFn: func(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
			return []model.Neighborhood{{ID: 7, Name: "East Village", Zipcode: "10003"}}, nil
		},
	}
	h := NewNeighborhoodHandler(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/neighborhoods/by-zipcode/10003-1234", nil)
	req = withChiURLParam(req, "zipcode", "10003-1234")
	w := httptest.NewRecorder()

	h.ByZipcode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNeighborhoodHandler_ByZipcode_FinderError(t *testing.T) {
	finder := &mockNeighborhoodFinder{
		byZipcodeFn: func(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewNeighborhoodHandler(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/neighborhoods/by-zipcode/10003", nil)
	req = withChiURLParam(req, "zipcode", "10003")
	w := httptest.NewRecorder()

	h.ByZipcode(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", errResp["code"])
	}
}
