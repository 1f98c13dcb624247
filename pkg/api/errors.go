package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"affilink/pkg/models"
)

// follows RFC 7807: Problem Details for HTTP APIs, extended with a
// stable machine-readable code per error kind.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

func WriteError(w http.ResponseWriter, status int, title, code, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	pd := &ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
		Code:     code,
	}

	json.NewEncoder(w).Encode(pd)
}

func WriteBadRequest(w http.ResponseWriter, code, detail, instance string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", code, detail, instance)
}

func WriteInternalServerError(w http.ResponseWriter, err error, instance string) {
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error", err.Error(), instance)
}

// WritePipelineError maps a pipeline error to its status code and
// stable code. The detail is the error message, never a stack trace.
func WritePipelineError(w http.ResponseWriter, err error, instance string) {
	status, title, code := classify(err)
	WriteError(w, status, title, code, err.Error(), instance)
}

// Code returns the stable machine-readable code for a pipeline error.
func Code(err error) string {
	_, _, code := classify(err)
	return code
}

func classify(err error) (status int, title, code string) {
	switch {
	case errors.Is(err, models.ErrInvalidURL):
		return http.StatusBadRequest, "Bad Request", "invalid_url"
	case errors.Is(err, models.ErrUnsupportedPlatform):
		return http.StatusBadRequest, "Bad Request", "unsupported_platform"
	case errors.Is(err, models.ErrPageNotAccessible):
		return http.StatusNotFound, "Not Found", "page_not_accessible"
	case errors.Is(err, models.ErrMissingTitle):
		return http.StatusUnprocessableEntity, "Unprocessable Entity", "missing_required_field"
	case errors.Is(err, models.ErrFetchExhausted),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Gateway Timeout", "fetch_exhausted"
	case errors.Is(err, models.ErrPersistence):
		return http.StatusInternalServerError, "Internal Server Error", "persistence_failure"
	case errors.Is(err, models.ErrAdapterNotRegistered):
		return http.StatusInternalServerError, "Internal Server Error", "adapter_not_registered"
	default:
		return http.StatusInternalServerError, "Internal Server Error", "internal_error"
	}
}
