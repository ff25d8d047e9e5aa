package api

import (
	"net/http"
	"time"

	"github.com/bull/docqa/internal/retrieval"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Entries   int    `json:"entries"`
	Timestamp string `json:"timestamp"`
}

// StatusReporter is implemented by the retriever.
type StatusReporter interface {
	Status() retrieval.Status
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// The process is healthy whether or not a document has been indexed yet;
// the index field tells the two apart.
func NewHealthHandler(index StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := index.Status()

		response := HealthResponse{
			Status:    "healthy",
			Index:     "empty",
			Entries:   status.Entries,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if status.Built {
			response.Index = "built"
		}

		jsonResponse(w, http.StatusOK, response)
	}
}
