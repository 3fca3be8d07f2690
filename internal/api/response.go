package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/reclaim/internal/logger"
	"github.com/erazemk/reclaim/internal/taxonomy"
	"github.com/erazemk/reclaim/internal/validate"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

type validationError struct {
	Error  string                    `json:"error"`
	Fields map[taxonomy.Field]string `json:"fields"`
}

// validationFailed writes a 400 listing the message of every failing field.
func validationFailed(w http.ResponseWriter, errs validate.Errors) {
	jsonResponse(w, http.StatusBadRequest, validationError{Error: "validation failed", Fields: errs})
}

// serverError logs err against the request and answers 500 with message.
func serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	logger.FromContext(r.Context()).Error(message, zap.Error(err))
	jsonError(w, http.StatusInternalServerError, message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

var errBadID = errors.New("invalid id")

// pathID parses the named URL parameter as a positive integer.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
