package api

import (
	"net/http"

	"github.com/dvloznov/fraud-screening/internal/api/handlers"
	"github.com/dvloznov/fraud-screening/internal/api/middleware"
	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Deps are the collaborators the HTTP routes need. Runs and Metrics may be nil.
type Deps struct {
	Scorer         handlers.Scorer
	Runs           handlers.RunLister
	Model          classifier.Info
	Metrics        http.Handler
	Limiter        *rate.Limiter
	MaxUploadBytes int64
	Log            zerolog.Logger
}

// NewRouter builds the routes wrapped in the middleware chain.
func NewRouter(d Deps) http.Handler {
	predictHandler := handlers.NewPredictHandler(d.Scorer, d.MaxUploadBytes, d.Log)
	runsHandler := handlers.NewRunsHandler(d.Runs, d.Log)

	// Scoring endpoints share one token bucket and the upload cap.
	scoring := func(h http.HandlerFunc) http.Handler {
		var next http.Handler = h
		if d.MaxUploadBytes > 0 {
			next = middleware.MaxBytes(d.MaxUploadBytes)(next)
		}
		if d.Limiter != nil {
			next = middleware.RateLimit(d.Limiter)(next)
		}
		return next
	}
	predictPage := scoring(predictHandler.PredictPage)
	predictAPI := scoring(predictHandler.PredictAPI)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method == http.MethodGet {
			predictHandler.Index(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			predictPage.ServeHTTP(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			predictAPI.ServeHTTP(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health(d.Model))

	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}

	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Logger(d.Log)(
				middleware.CORS(mux),
			),
		),
	)
}
