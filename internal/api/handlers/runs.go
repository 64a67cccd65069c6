package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/fraud-screening/internal/api/middleware"
	infra "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
	"github.com/rs/zerolog"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunLister reads the scoring run ledger.
type RunLister interface {
	ListRecentScoringRuns(ctx context.Context, limit int) ([]*infra.ScoringRunRow, error)
}

// RunsHandler handles scoring run endpoints.
type RunsHandler struct {
	repo RunLister
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler. repo may be nil when the ledger
// is disabled.
func NewRunsHandler(repo RunLister, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{repo: repo, log: log}
}

type runResponse struct {
	RunID        string     `json:"run_id"`
	RunDate      string     `json:"run_date"`
	Filename     string     `json:"filename"`
	Format       string     `json:"format"`
	ModelName    string     `json:"model_name"`
	ModelVersion string     `json:"model_version"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Rows         *int64     `json:"rows,omitempty"`
	Legit        *int64     `json:"legit,omitempty"`
	Fraud        *int64     `json:"fraud,omitempty"`
	Error        string     `json:"error,omitempty"`
	ArchiveURI   string     `json:"archive_uri,omitempty"`
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusNotFound, "Run ledger is not configured")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	rows, err := h.repo.ListRecentScoringRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list scoring runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list scoring runs")
		return
	}

	runs := make([]runResponse, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, newRunResponse(row))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func newRunResponse(row *infra.ScoringRunRow) runResponse {
	resp := runResponse{
		RunID:        row.RunID,
		RunDate:      row.RunDate.String(),
		Filename:     row.Filename,
		Format:       row.FileFormat,
		ModelName:    row.ModelName,
		ModelVersion: row.ModelVersion,
		Status:       row.Status,
		StartedAt:    row.StartedTS,
	}
	if row.FinishedTS.Valid {
		t := row.FinishedTS.Timestamp
		resp.FinishedAt = &t
	}
	if row.RowCount.Valid {
		resp.Rows = &row.RowCount.Int64
	}
	if row.LegitCount.Valid {
		resp.Legit = &row.LegitCount.Int64
	}
	if row.FraudCount.Valid {
		resp.Fraud = &row.FraudCount.Int64
	}
	if row.ErrorMessage.Valid {
		resp.Error = row.ErrorMessage.StringVal
	}
	if row.ArchiveURI.Valid {
		resp.ArchiveURI = row.ArchiveURI.StringVal
	}
	return resp
}
