package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/ticktock/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// failedParse keeps the ParseResult shape on parse and refine failures so
// clients can render the response unconditionally.
func failedParse(reason string) models.ParseResult {
	return models.ParseResult{
		Entries:     []models.TimeEntry{},
		Suggestions: []string{"Sorry, the message could not be processed: " + reason},
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}
