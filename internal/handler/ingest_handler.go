package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/ethfeed/internal/ingest"
	"github.com/hitoshi/ethfeed/internal/middleware"
	"github.com/hitoshi/ethfeed/internal/model"
)

// IngestRunner は取り込みを1回実行する。
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Summary, error)
}

var _ IngestRunner = (*ingest.Pipeline)(nil)

// IngestHandler は取り込み実行のHTTPハンドラー。
type IngestHandler struct {
	runner IngestRunner
}

// NewIngestHandler はIngestHandlerを生成する。
func NewIngestHandler(runner IngestRunner) *IngestHandler {
	return &IngestHandler{runner: runner}
}

// Fetch は取り込みを同期実行し、実行結果のサマリーを返す。
// POST /api/fetch
func (h *IngestHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if errors.Is(err, ingest.ErrRunning) {
		middleware.WriteAPIError(w, model.NewIngestRunningError())
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HealthChecker はストレージの疎通確認を行う。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Health はストレージへの疎通を確認する。
// GET /health
func Health(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
