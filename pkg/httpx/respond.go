// Package httpx holds the JSON plumbing shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

const maxBody = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the error taxonomy to a status code. Details of internal
// failures are logged, never returned.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalid):
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Error("request failed", "err", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong, please try again"})
	}
}

// DecodeJSON decodes exactly one JSON value and rejects unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: body: %v", apperr.ErrInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body: trailing data", apperr.ErrInvalid)
	}
	return nil
}
