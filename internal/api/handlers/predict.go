package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/api/middleware"
	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/dvloznov/fraud-screening/internal/pipeline"
	"github.com/dvloznov/fraud-screening/internal/report"
	"github.com/rs/zerolog"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

const statusUnprocessable = http.StatusUnprocessableEntity

var (
	errNoFile       = errors.New("no file uploaded")
	errFileTooLarge = errors.New("file is too large")
)

// Scorer runs the screening pipeline over one upload.
type Scorer interface {
	ScoreUpload(ctx context.Context, upload pipeline.Upload) (*pipeline.Result, error)
}

// PredictHandler handles the upload form and the prediction endpoints.
type PredictHandler struct {
	scorer         Scorer
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(scorer Scorer, maxUploadBytes int64, log zerolog.Logger) *PredictHandler {
	return &PredictHandler{
		scorer:         scorer,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Index handles GET /
func (h *PredictHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageView{})
}

// PredictPage handles POST /predict and renders the result page.
func (h *PredictHandler) PredictPage(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(r)
	if err != nil {
		status, message := uploadErrorStatus(err)
		h.renderPage(w, status, pageView{Error: &errorView{Message: message}})
		return
	}

	result, err := h.scorer.ScoreUpload(r.Context(), upload)
	if err != nil {
		status, _ := classifyError(err)
		h.renderPage(w, status, pageView{Error: newErrorView(err, upload)})
		return
	}

	view, err := newResultView(upload.Filename, result.Report)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build result page")
		h.renderPage(w, http.StatusInternalServerError, pageView{Error: &errorView{Message: "Failed to render results"}})
		return
	}
	h.renderPage(w, http.StatusOK, pageView{Result: view})
}

// PredictAPI handles POST /api/predict. It answers with JSON, or with the
// annotated CSV when ?format=csv is set or the client accepts text/csv.
func (h *PredictHandler) PredictAPI(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(r)
	if err != nil {
		status, message := uploadErrorStatus(err)
		middleware.WriteError(w, status, message)
		return
	}

	result, err := h.scorer.ScoreUpload(r.Context(), upload)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	if wantsCSV(r) {
		h.writeCSV(w, result.Report.Batch)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, newPredictResponse(result))
}

// readUpload expects the body to be capped by middleware.MaxBytes.
func (h *PredictHandler) readUpload(r *http.Request) (pipeline.Upload, error) {
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return pipeline.Upload{}, errFileTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return pipeline.Upload{}, errNoFile
		default:
			return pipeline.Upload{}, fmt.Errorf("reading upload: %w", err)
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("reading upload: %w", err)
	}

	return pipeline.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *PredictHandler) renderPage(w http.ResponseWriter, status int, view pageView) {
	view.MaxUploadMB = h.maxUploadBytes >> 20
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, view); err != nil {
		h.log.Error().Err(err).Msg("Failed to render page")
	}
}

func (h *PredictHandler) writeCSV(w http.ResponseWriter, batch *domain.ScoredBatch) {
	data, err := report.CSVBytes(batch)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode CSV")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode results")
		return
	}
	w.Header().Set("Content-Type", report.ContentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DownloadFilename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func wantsCSV(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), report.ContentTypeCSV)
}

// classifyError maps a pipeline failure to a status and user-facing message.
func classifyError(err error) (int, string) {
	var missing *pipeline.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return statusUnprocessable, "Error processing file: " + missing.Error()
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file type. Please upload a CSV or JSON file."
	default:
		return http.StatusBadRequest, "Error processing file: " + err.Error()
	}
}

func uploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File is too large"
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "No file uploaded"
	default:
		return http.StatusBadRequest, "Error processing file: " + err.Error()
	}
}

func writePipelineError(w http.ResponseWriter, err error) {
	status, message := classifyError(err)

	var missing *pipeline.MissingColumnsError
	if errors.As(err, &missing) {
		middleware.WriteJSON(w, status, map[string]interface{}{
			"error":    message,
			"found":    missing.Found,
			"required": missing.Required,
			"missing":  missing.Missing,
		})
		return
	}
	middleware.WriteError(w, status, message)
}
