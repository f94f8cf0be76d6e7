package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// RejectionBody is the JSON payload returned with a 429.
// Field names are part of the public wire contract.
type RejectionBody struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// Rejection is the caller-facing description of a refused request.
type Rejection struct {
	Status            int
	RetryAfterSeconds int
	Limit             int
	Body              RejectionBody
}

// NewRejection builds the 429 payload for a request refused for
// retryAfterSeconds under a limit of limit requests per window.
func NewRejection(retryAfterSeconds, limit int) Rejection {
	return Rejection{
		Status:            http.StatusTooManyRequests,
		RetryAfterSeconds: retryAfterSeconds,
		Limit:             limit,
		Body: RejectionBody{
			Error:             "Rate limit exceeded",
			Message:           fmt.Sprintf("Too many requests. Try again in %d seconds", retryAfterSeconds),
			RetryAfterSeconds: retryAfterSeconds,
		},
	}
}

// SetHeaders writes the informational X-RateLimit-* headers for an admitted request.
func SetHeaders(w http.ResponseWriter, dec Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.UnixMilli(), 10))
}

// WriteRejection writes a 429 for dec with Retry-After, X-RateLimit-Limit,
// X-RateLimit-Reset (epoch milliseconds) and the JSON RejectionBody.
func WriteRejection(w http.ResponseWriter, dec Decision) error {
	rej := NewRejection(dec.RetryAfter, dec.Limit)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Retry-After", strconv.Itoa(rej.RetryAfterSeconds))
	h.Set("X-RateLimit-Limit", strconv.Itoa(rej.Limit))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.UnixMilli(), 10))
	w.WriteHeader(rej.Status)

	return json.NewEncoder(w).Encode(rej.Body)
}
