package handlers

import (
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/dvloznov/fraud-screening/internal/pipeline"
	"github.com/dvloznov/fraud-screening/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/index.html"),
)

type pageView struct {
	MaxUploadMB int64
	Error       *errorView
	Result      *resultView
}

type errorView struct {
	Message  string
	Found    []string
	Required []string
	Missing  []string
	Preview  *previewView
}

// previewView holds the first parsed rows of an upload that failed later.
type previewView struct {
	Columns []string
	Rows    [][]string
}

type resultView struct {
	Filename     string
	Single       *report.SingleResult
	IsFraud      bool
	Summary      *report.Summary
	FraudAmount  string
	Columns      []string
	Rows         []rowView
	DownloadName string
	DownloadURL  template.URL
}

type rowView struct {
	Cells   []string
	IsFraud bool
}

func newResultView(filename string, r *report.Report) (*resultView, error) {
	batch := r.Batch
	view := &resultView{
		Filename: filename,
		Single:   r.Single,
		Summary:  r.Summary,
		Columns:  append(append([]string(nil), batch.Columns...), domain.PredictionColumn, domain.ProbabilityColumn),
		Rows:     make([]rowView, len(batch.Rows)),
	}

	for i, row := range batch.Rows {
		cells := make([]string, 0, len(view.Columns))
		for _, v := range row.Features {
			cells = append(cells, report.FormatFloat(v))
		}
		cells = append(cells, string(row.Prediction), report.FormatFloat(row.FraudProbability))
		view.Rows[i] = rowView{Cells: cells, IsFraud: row.Prediction == domain.VerdictFraud}
	}

	if r.IsSingle() {
		view.IsFraud = r.Single.Prediction == domain.VerdictFraud
		return view, nil
	}

	view.FraudAmount = r.Summary.FraudAmount.StringFixed(2)
	data, err := report.CSVBytes(batch)
	if err != nil {
		return nil, err
	}
	view.DownloadName = report.DownloadFilename
	// Trusted: built from our own base64 output.
	view.DownloadURL = template.URL("data:" + report.ContentTypeCSV + ";base64," + base64.StdEncoding.EncodeToString(data))
	return view, nil
}

func newErrorView(err error, upload pipeline.Upload) *errorView {
	_, message := classifyError(err)
	view := &errorView{Message: message}
	var missing *pipeline.MissingColumnsError
	if errors.As(err, &missing) {
		view.Found = missing.Found
		view.Required = missing.Required
		view.Missing = missing.Missing
	}
	if table, perr := pipeline.Preview(upload, pipeline.PreviewRows); perr == nil {
		view.Preview = &previewView{Columns: table.Columns, Rows: table.Rows}
	}
	return view
}
