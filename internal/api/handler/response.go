package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// RetryableError writes an error response carrying a Retry-After header,
// rounded up so a zero-but-positive backoff never becomes "retry now".
func RetryableError(w http.ResponseWriter, status int, err string, message string, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if retryAfter > 0 && seconds == 0 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	JSON(w, status, ErrorResponse{
		Error:      err,
		Message:    message,
		RetryAfter: seconds,
	})
}
