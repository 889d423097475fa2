package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"stockdesk/internal/ai"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
)

var (
	errBadRequest = errors.New("bad request")
	errNoTicker   = errors.New("load a ticker first")
	errAnalysis   = errors.New("analysis failed")
)

type errorBody struct {
	Error string           `json:"error"`
	Guard *ai.GuardVerdict `json:"guard,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the package sentinels to HTTP codes. Order matters: a
// rejected question is wrapped in errAnalysis too.
func statusFor(err error) int {
	switch {
	case errors.Is(err, finance.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrQuestionRejected), errors.Is(err, document.ErrCompanyMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoTicker):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, finance.ErrInvalidSymbol),
		errors.Is(err, finance.ErrInvalidPeriod),
		errors.Is(err, document.ErrUnsupportedType),
		errors.Is(err, document.ErrEmptyDocument),
		errors.Is(err, document.ErrInvalidPDF):
		return http.StatusBadRequest
	case errors.Is(err, errAnalysis), errors.Is(err, finance.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError is the single place errors become responses.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error, guard *ai.GuardVerdict) {
	status := statusFor(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorBody{Error: err.Error(), Guard: guard})
}
