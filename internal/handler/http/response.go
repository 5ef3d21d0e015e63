package http

import (
	"encoding/json"
	"net/http"
	"time"
)

type ReadMetadata struct {
	ResponseTime string `json:"responseTime"`
	CacheHit     bool   `json:"cacheHit"`
	Source       string `json:"source"`
}

type Response struct {
	Success  bool          `json:"success"`
	Data     any           `json:"data,omitempty"`
	Message  string        `json:"message,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
	Metadata *ReadMetadata `json:"metadata,omitempty"`
}

type AcceptedData struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlationId"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAccepted is the uniform 202 for every write endpoint: the request was
// published, the correlation id is the caller's handle to the eventual
// outcome on the realtime channel.
func writeAccepted(w http.ResponseWriter, id, correlationID, message string) {
	writeJSON(w, http.StatusAccepted, Response{
		Success: true,
		Data:    AcceptedData{ID: id, CorrelationID: correlationID},
		Message: message,
	})
}

func writeRead(w http.ResponseWriter, data any, cacheHit bool, started time.Time) {
	source := "database"
	if cacheHit {
		source = "cache"
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Metadata: &ReadMetadata{
			ResponseTime: time.Since(started).String(),
			CacheHit:     cacheHit,
			Source:       source,
		},
	})
}

// writeNotFound carries the same read metadata as a successful read: a miss
// that reached the database and found nothing is still a database-sourced,
// non-cached response.
func writeNotFound(w http.ResponseWriter, message string, started time.Time) {
	writeJSON(w, http.StatusNotFound, Response{
		Success: false,
		Message: message,
		Metadata: &ReadMetadata{
			ResponseTime: time.Since(started).String(),
			CacheHit:     false,
			Source:       "database",
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs []string) {
	writeJSON(w, http.StatusBadRequest, Response{Success: false, Errors: errs})
}

func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Message: message})
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "internal server error"})
}
