package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/notekeeper/backend/internal/auth"
	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/summary"
)

// tagErrorStatus maps each refusal kind to its HTTP status.
var tagErrorStatus = map[domain.TagErrorKind]int{
	domain.TagNotOwned:         http.StatusForbidden,
	domain.CannotShareWithSelf: http.StatusUnprocessableEntity,
	domain.DuplicateAccess:     http.StatusConflict,
	domain.AccessNotFound:      http.StatusNotFound,
	domain.TagNotFound:         http.StatusNotFound,
	domain.TagHasNotes:         http.StatusConflict,
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// fail translates a service error into an HTTP response. Anything it does not
// recognise is logged and reported as a bare 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var kind domain.TagErrorKind
	switch {
	case errors.As(err, &kind):
		status, ok := tagErrorStatus[kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeError(w, status, strings.ToLower(kind.Code()), kind.Error())
	case errors.Is(err, domain.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, "recipient_not_found", "no user is registered with that email")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", unwrapMessage(err))
	case errors.Is(err, summary.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "summary_unavailable", "summaries are not enabled")
	case errors.Is(err, summary.ErrUpstream):
		s.log.WarnContext(r.Context(), "summary upstream failed", "error", err)
		writeError(w, http.StatusBadGateway, "summary_failed", "the summary service did not answer")
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// requestBody returns a 422 for a request rejected before reaching the service
// layer (e.g. missing or malformed body).
func requestBody(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// badBody reports a body decodeBody rejected. A body cut off by the size cap
// is a 413; anything else is a 422.
func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
		return
	}
	requestBody(w, err.Error())
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TagService.Create: validation error: name is required" → "name is required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []string{
		domain.ErrValidation.Error() + ": ",
		domain.ErrConflict.Error() + ": ",
	} {
		if _, rest, ok := strings.Cut(msg, marker); ok && rest != "" {
			return rest
		}
	}
	return msg
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields
// and trailing data.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: unexpected trailing data")
	}
	return nil
}

// pathUUID binds a UUID path parameter the way generated oapi-codegen
// wrappers do.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return id, nil
}

// queryInt binds an optional integer query parameter. A missing parameter
// leaves the result nil.
func queryInt(r *http.Request, name string) (*int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v, nil
}

// requester returns the verified user id. Routes behind auth always have one;
// a missing id means the router was wired without the auth middleware.
func requester(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
	}
	return id, ok
}
