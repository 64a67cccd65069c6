package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/fraud-screening/internal/api/middleware"
	"github.com/dvloznov/fraud-screening/internal/classifier"
)

// Health returns the GET /health handler reporting the loaded model.
func Health(model classifier.Info) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":        "healthy",
			"time":          time.Now().Format(time.RFC3339),
			"model_name":    model.Name,
			"model_version": model.Version,
		})
	}
}
