package bulkadd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/chomp/internal/model"
	"github.com/hitoshi/chomp/internal/places"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockRestaurantRepo はRestaurantRepositoryのテスト用モック。
// existingNamesに含まれる名前は既存レストランとして扱われ、
// BulkInsertでは一意制約の競合としてスキップされる。
type mockRestaurantRepo struct {
	existingNames map[string]int64
	insertErr     error
	lookupErr     error

	insertedBatch *model.SubmissionBatch
	insertCtxErr  error
	nextID        int64
}

func (m *mockRestaurantRepo) FindByNameAndCity(ctx context.Context, name, cityName string) (*model.Restaurant, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if id, ok := m.existingNames[strings.ToLower(name)]; ok {
		return &model.Restaurant{ID: id, Name: name}, nil
	}
	return nil, nil
}

func (m *mockRestaurantRepo) SearchByName(ctx context.Context, query string, limit int) ([]*model.Restaurant, error) {
	return nil, nil
}

func (m *mockRestaurantRepo) BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error) {
	m.insertCtxErr = ctx.Err()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.insertedBatch = batch

	result := &model.BatchResult{Details: []model.BatchDetail{}}
	for _, item := range batch.Items {
		detail := model.BatchDetail{
			InputName:  item.Name,
			InputType:  item.ItemType,
			LineNumber: item.LineNumber,
		}
		if _, ok := m.existingNames[strings.ToLower(item.Name)]; ok {
			detail.Status = model.DetailStatusSkipped
			detail.Reason = "同名のレストランが既に存在します"
			result.SkippedCount++
		} else {
			m.nextID++
			id := m.nextID
			detail.Status = model.DetailStatusAdded
			detail.InsertedID = &id
			result.AddedCount++
		}
		result.ProcessedCount++
		result.Details = append(result.Details, detail)
	}
	return result, nil
}

func (m *mockRestaurantRepo) ListNeedingNeighborhoodBackfill(ctx context.Context, limit int) ([]*model.Restaurant, error) {
	return nil, nil
}

func (m *mockRestaurantRepo) UpdateNeighborhood(ctx context.Context, restaurantID, neighborhoodID int64) error {
	return nil
}

// mockDishRepo はDishRepositoryのテスト用モック。
type mockDishRepo struct {
	existingNames map[string]int64
	insertErr     error

	insertedBatch *model.SubmissionBatch
	nextID        int64
}

func (m *mockDishRepo) FindByNameAndRestaurant(ctx context.Context, dishName, restaurantName string) (*model.Dish, error) {
	if id, ok := m.existingNames[strings.ToLower(dishName)]; ok {
		return &model.Dish{ID: id, Name: dishName}, nil
	}
	return nil, nil
}

func (m *mockDishRepo) BulkInsert(ctx context.Context, batch *model.SubmissionBatch) (*model.BatchResult, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.insertedBatch = batch

	result := &model.BatchResult{Details: []model.BatchDetail{}}
	for _, item := range batch.Items {
		m.nextID++
		id := m.nextID
		result.Details = append(result.Details, model.BatchDetail{
			InputName:  item.Name,
			InputType:  item.ItemType,
			LineNumber: item.LineNumber,
			Status:     model.DetailStatusAdded,
			InsertedID: &id,
		})
		result.AddedCount++
		result.ProcessedCount++
	}
	return result, nil
}

// mockRunRepo はRunRepositoryのテスト用モック。
type mockRunRepo struct {
	createErr    error
	createCtxErr error
	createdRuns  []*model.BulkRun
}

func (m *mockRunRepo) Create(ctx context.Context, run *model.BulkRun) error {
	m.createCtxErr = ctx.Err()
	if m.createErr != nil {
		return m.createErr
	}
	m.createdRuns = append(m.createdRuns, run)
	return nil
}

func (m *mockRunRepo) FindByID(ctx context.Context, id string) (*model.BulkRun, error) {
	for _, run := range m.createdRuns {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, nil
}

func (m *mockRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// mockResolver はPlaceResolverのテスト用モック。
// failNamesに含まれる名前は0件として扱う。
type mockResolver struct {
	failNames  map[string]bool
	resolveErr error
	website    string
	calls      int
}

func (m *mockResolver) Resolve(ctx context.Context, item *model.ParsedItem) (*places.Resolution, error) {
	m.calls++
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	if m.failNames[strings.ToLower(item.Name)] {
		return nil, places.ErrNoPlacesFound
	}
	return &places.Resolution{
		Candidates: []model.PlaceCandidate{{PlaceID: "p-1", Name: item.Name}},
		Selected: &model.ResolvedPlace{
			PlaceID:          "p-1",
			FormattedAddress: "5 E 19th St, New York, NY 10003",
			PostalCode:       "10003",
			Website:          m.website,
		},
	}, nil
}

// mockEnricher はNeighborhoodEnricherのテスト用モック。
type mockEnricher struct {
	ref model.NeighborhoodRef
}

func (m *mockEnricher) Enrich(ctx context.Context, item *model.ParsedItem, place *model.ResolvedPlace) model.NeighborhoodRef {
	return m.ref
}

// mockTitleFetcher はWebsiteTitleFetcherのテスト用モック。
type mockTitleFetcher struct {
	title string
	err   error
}

func (m *mockTitleFetcher) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	return m.title, m.err
}

// passthroughSanitizer はテスト用の素通しサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(raw)
}

// noopMetrics はMetricsCollectorのテスト用no-op実装。
type noopMetrics struct{}

func (noopMetrics) RecordLookupSuccess()                           {}
func (noopMetrics) RecordLookupFailure(reason string)              {}
func (noopMetrics) RecordLookupLatency(duration time.Duration)     {}
func (noopMetrics) RecordHTTPStatus(statusCode int)                {}
func (noopMetrics) RecordItemsSubmitted(status string, count int)  {}
func (noopMetrics) RecordRunCompleted(itemType string)             {}
func (noopMetrics) RecordRunsDeleted(count int64)                  {}
