package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/places"
)

// mockPlaceSearch はPlaceSearchInterfaceのモック実装。
type mockPlaceSearch struct {
	searchFn func(ctx context.Context, query string) ([]places.SearchResult, error)
}

func (m *mockPlaceSearch) Search(ctx context.Context, query string) ([]places.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return []places.SearchResult{}, nil
}

func TestPlacesHandler_Search_Success(t *testing.T) {
	searcher := &mockPlaceSearch{
		searchFn: func(ctx context.Context, query string) ([]places.SearchResult, error) {
			if query != "Thai Villa New York" {
				t.Errorf("query = %q", query)
			}
			return []places.SearchResult{
				{PlaceID: "place-1", Name: "Thai Villa", Description: "Thai Villa, 5th Ave, New York"},
				{PlaceID: "place-2", Name: "Thai Villa Queens", Description: "Thai Villa, Queens Blvd"},
			}, nil
		},
	}
	h := NewPlacesHandler(searcher)

	req := httptest.NewRequest(http.MethodGet, "/api/places/search?query=Thai+Villa+New+York", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got placeSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Query != "Thai Villa New York" {
		t.Errorf("Query = %q", got.Query)
	}
	if len(got.Candidates) != 2 {
		t.Fatalf("len(Candidates) = %d, want 2", len(got.Candidates))
	}
	if got.Candidates[0].PlaceID != "place-1" {
		t.Errorf("Candidates[0].PlaceID = %q", got.Candidates[0].PlaceID)
	}
}

func TestPlacesHandler_Search_EmptyQuery(t *testing.T) {
	called := false
	searcher := &mockPlaceSearch{
		searchFn: func(ctx context.Context, query string) ([]places.SearchResult, error) {
			called = true
			return nil, nil
		},
	}
	h := NewPlacesHandler(searcher)

	req := httptest.NewRequest(http.MethodGet, "/api/places/search", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("searcher should not be called for an empty query")
	}
}

// 検索結果ゼロ件は200で空のcandidatesを返す。
func TestPlacesHandler_Search_NoResults(t *testing.T) {
	h := NewPlacesHandler(&mockPlaceSearch{})

	req := httptest.NewRequest(http.MethodGet, "/api/places/search?query=nonexistent", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got placeSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Candidates == nil {
		t.Error("Candidates should be an empty slice, not null")
	}
}

func TestPlacesHandler_Search_UpstreamError(t *testing.T) {
	searcher := &mockPlaceSearch{
		searchFn: func(ctx context.Context, query string) ([]places.SearchResult, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	h := NewPlacesHandler(searcher)

	req := httptest.NewRequest(http.MethodGet, "/api/places/search?query=Thai", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodePlaceLookupFailed {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodePlaceLookupFailed)
	}
}
