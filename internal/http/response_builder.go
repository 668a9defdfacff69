// Package http serves the training dashboards as a JSON API.
//
// This file builds JSON responses and maps service errors onto status codes
// so every handler reports failures the same way.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"egitim/internal/aggregate"
	"egitim/internal/core"
	"egitim/internal/headcount"
	applog "egitim/internal/log"
	"egitim/internal/services"
)

// errBadRequest marks malformed query or body input.
var errBadRequest = errors.New("bad request")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

func NewJSONResponse(payload any) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		payload:    payload,
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(b.payload)
}

// ErrorResponse creates a JSON error response with message.
func ErrorResponse(statusCode int, message, requestID string) *JSONResponseBuilder {
	return NewJSONResponse(ErrorBody{Error: message, RequestID: requestID}).Status(statusCode)
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods, requestID string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed", requestID).
		Header("Allow", allowedMethods)
}

// statusFor maps an error returned by the service layer to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, headcount.ErrInvalidYear),
		errors.Is(err, aggregate.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoDataset),
		errors.Is(err, headcount.ErrYearNotFound):
		return http.StatusNotFound
	case errors.Is(err, headcount.ErrYearExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnreadableWorkbook),
		errors.Is(err, core.ErrGridTooShort),
		errors.Is(err, headcount.ErrInvalidCounts),
		errors.Is(err, headcount.ErrYearOutOfRange),
		errors.Is(err, headcount.ErrInvalidImport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes its mapped status. Server errors hide
// their message from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = "internal error"
		s.events.LogError(r.Context(), "Request failed", err, op, applog.NewFields().WithComponent(applog.ComponentHTTP))
	} else {
		applog.FromContextOr(r.Context(), s.logger).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
	}
	ErrorResponse(status, msg, requestID(r)).Write(w)
}
