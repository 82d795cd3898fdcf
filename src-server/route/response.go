package route

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mycal/src-server/metric"
	"mycal/src-server/schedule"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondScheduleError maps the engine's typed errors onto HTTP status
// codes: validation and conflicts are 400s, missing ids and out-of-range
// pages are 404s, anything else is a 500.
func respondScheduleError(w http.ResponseWriter, err error) {
	var invalidParam *schedule.InvalidParameterError
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict):
		metric.EventConflicts.Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidParam),
		errors.Is(err, schedule.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, schedule.ErrPageOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("unexpected engine error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
