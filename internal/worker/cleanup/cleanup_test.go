package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// mockRunDeleter はRunDeleterのモック実装。
type mockRunDeleter struct {
	deleteCalled bool
	cutoff       time.Time
	deleted      int64
	err          error
}

func (m *mockRunDeleter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.deleteCalled = true
	m.cutoff = cutoff
	return m.deleted, m.err
}

// mockMetrics はメトリクス収集のモック実装。
type mockMetrics struct {
	runsDeleted int64
}

func (m *mockMetrics) RecordLookupSuccess()                          {}
func (m *mockMetrics) RecordLookupFailure(reason string)             {}
func (m *mockMetrics) RecordLookupLatency(d time.Duration)           {}
func (m *mockMetrics) RecordHTTPStatus(statusCode int)               {}
func (m *mockMetrics) RecordItemsSubmitted(status string, count int) {}
func (m *mockMetrics) RecordRunCompleted(itemType string)            {}
func (m *mockMetrics) RecordRunsDeleted(count int64)                 { m.runsDeleted += count }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockRunDeleter{}, &mockMetrics{}, newTestLogger(&buf))

	if job.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesWithCutoff(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockRunDeleter{deleted: 3}
	job := NewCleanupJob(deleter, &mockMetrics{}, newTestLogger(&buf))

	before := time.Now().AddDate(0, 0, -30)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	after := time.Now().AddDate(0, 0, -30)

	if !deleter.deleteCalled {
		t.Fatal("DeleteOlderThan should be called")
	}
	// cutoffは30日前の時刻
	if deleter.cutoff.Before(before) || deleter.cutoff.After(after) {
		t.Errorf("cutoff = %v, want around %v", deleter.cutoff, before)
	}
}

func TestCleanupJob_Run_RespectsCustomRetention(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockRunDeleter{}
	job := NewCleanupJob(deleter, &mockMetrics{}, newTestLogger(&buf))
	job.RetentionDays = 7

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantCutoff := time.Now().AddDate(0, 0, -7)
	diff := deleter.cutoff.Sub(wantCutoff)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want around %v", deleter.cutoff, wantCutoff)
	}
}

func TestCleanupJob_Run_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	collector := &mockMetrics{}
	job := NewCleanupJob(&mockRunDeleter{deleted: 5}, collector, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if collector.runsDeleted != 5 {
		t.Errorf("runsDeleted = %d, want 5", collector.runsDeleted)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockRunDeleter{deleted: 2}, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var ok bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, found := entry["deleted_count"]; found && count == float64(2) {
			ok = true
		}
	}
	if !ok {
		t.Error("log should contain deleted_count=2")
	}
}

func TestCleanupJob_Run_DeleteError(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockRunDeleter{err: errors.New("connection refused")}
	collector := &mockMetrics{}
	job := NewCleanupJob(deleter, collector, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when delete fails")
	}
	if collector.runsDeleted != 0 {
		t.Error("metrics should not be recorded on failure")
	}
}

// 削除対象がない場合もエラーにならない（冪等性）。
func TestCleanupJob_Run_NoRowsIsNotError(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockRunDeleter{deleted: 0}, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run should succeed with zero deletions: %v", err)
	}
}
