package neighborhood

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hitoshi/chomp/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockFinder はFinderのテスト用モック。
type mockFinder struct {
	neighborhoods []model.Neighborhood
	err           error
	gotZipcode    string
	called        bool
}

func (m *mockFinder) ByZipcode(ctx context.Context, zipcode string) ([]model.Neighborhood, error) {
	m.called = true
	m.gotZipcode = zipcode
	return m.neighborhoods, m.err
}

func TestEnrich_AssignsNeighborhood(t *testing.T) {
	finder := &mockFinder{
		neighborhoods: []model.Neighborhood{
			{ID: 7, Name: "Flatiron", Zipcode: "10003"},
		},
	}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 1, Name: "Thai Villa"}
	place := &model.ResolvedPlace{PostalCode: "10003"}

	ref := enricher.Enrich(context.Background(), item, place)
	if !ref.Assigned() {
		t.Fatal("地区が見つかった場合は割り当て済みになるべきです")
	}
	if ref.ID() != 7 {
		t.Errorf("ID() = %d, want 7", ref.ID())
	}
	if ref.Name() != "Flatiron" {
		t.Errorf("Name() = %q, want %q", ref.Name(), "Flatiron")
	}
	if finder.gotZipcode != "10003" {
		t.Errorf("zipcode = %q, want %q", finder.gotZipcode, "10003")
	}
}

func TestEnrich_MultipleNeighborhoods_SelectsFirst(t *testing.T) {
	finder := &mockFinder{
		neighborhoods: []model.Neighborhood{
			{ID: 3, Name: "Gramercy", Zipcode: "10010"},
			{ID: 4, Name: "Flatiron", Zipcode: "10010"},
		},
	}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 2, Name: "X"}
	place := &model.ResolvedPlace{PostalCode: "10010"}

	ref := enricher.Enrich(context.Background(), item, place)
	if ref.ID() != 3 {
		t.Errorf("先頭の地区が選択されるべきです: ID() = %d", ref.ID())
	}
}

func TestEnrich_NoPostalCode_Unassigned(t *testing.T) {
	finder := &mockFinder{}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 1, Name: "Souk Stand"}
	place := &model.ResolvedPlace{PostalCode: ""}

	ref := enricher.Enrich(context.Background(), item, place)
	if ref.Assigned() {
		t.Error("郵便番号がない場合は未割り当てになるべきです")
	}
	if finder.called {
		t.Error("郵便番号がない場合は検索を呼び出してはいけません")
	}
}

func TestEnrich_NilPlace_Unassigned(t *testing.T) {
	finder := &mockFinder{}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 1, Name: "X"}
	ref := enricher.Enrich(context.Background(), item, nil)
	if ref.Assigned() {
		t.Error("場所がnilの場合は未割り当てになるべきです")
	}
}

func TestEnrich_LookupError_UnassignedNotError(t *testing.T) {
	finder := &mockFinder{err: errors.New("db接続エラー")}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 5, Name: "Thai Villa"}
	place := &model.ResolvedPlace{PostalCode: "10003"}

	ref := enricher.Enrich(context.Background(), item, place)
	if ref.Assigned() {
		t.Error("検索失敗時は未割り当てになるべきです")
	}
}

func TestEnrich_NoMatch_Unassigned(t *testing.T) {
	finder := &mockFinder{neighborhoods: []model.Neighborhood{}}
	var buf bytes.Buffer
	enricher := NewEnricher(finder, newTestLogger(&buf))

	item := &model.ParsedItem{LineNumber: 1, Name: "X"}
	place := &model.ResolvedPlace{PostalCode: "99999"}

	ref := enricher.Enrich(context.Background(), item, place)
	if ref.Assigned() {
		t.Error("該当地区がない場合は未割り当てになるべきです")
	}
}
