package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/chomp/internal/model"
)

// RunFinderInterface は実行履歴ハンドラーが必要とするインターフェース。
type RunFinderInterface interface {
	// FindByID は指定IDの実行履歴を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.BulkRun, error)
}

// RunHandler は一括追加実行履歴のHTTPハンドラー。
type RunHandler struct {
	runs RunFinderInterface
}

// NewRunHandler はRunHandlerを生成する。
func NewRunHandler(runs RunFinderInterface) *RunHandler {
	return &RunHandler{runs: runs}
}

// GetRun は実行履歴の詳細を返す。
// GET /api/admin/bulk-add/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(runID); err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRunNotFoundError(runID))
		return
	}

	run, err := h.runs.FindByID(r.Context(), runID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if run == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRunNotFoundError(runID))
		return
	}

	writeJSONResponse(w, http.StatusOK, toBulkRunResponse(run))
}
