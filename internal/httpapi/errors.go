package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"northscrape-engine/internal/export"
	"northscrape-engine/internal/pipeline"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps domain errors onto status codes. Anything unrecognised is a
// 500 and gets logged.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		WriteError(w, r, http.StatusBadRequest, "empty_query", err.Error())
	case errors.Is(err, pipeline.ErrNoLeads):
		WriteError(w, r, http.StatusBadRequest, "no_leads", err.Error())
	case errors.Is(err, export.ErrMissingColumn), errors.Is(err, export.ErrMalformedRow):
		WriteError(w, r, http.StatusBadRequest, "bad_sheet", err.Error())
	case errors.Is(err, pipeline.ErrRunAlreadyActive):
		WriteError(w, r, http.StatusConflict, "run_active", err.Error())
	case errors.Is(err, pipeline.ErrRunNotActive):
		WriteError(w, r, http.StatusConflict, "run_not_active", err.Error())
	default:
		zap.L().Error("httpapi: request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
