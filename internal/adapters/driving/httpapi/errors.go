// Package httpapi serves the medrag question answering pipeline over HTTP.
// Routes live under /api/v1 and, apart from token issue and health, require
// a bearer JWT.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/logger"
)

var (
	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("httpapi: answer service is required")

	// ErrMissingRetriever is returned when the retriever service is not provided.
	ErrMissingRetriever = errors.New("httpapi: retriever service is required")

	// ErrMissingSecret is returned when no JWT signing secret is configured.
	ErrMissingSecret = errors.New("httpapi: server.jwt_secret must be set")
)

// statusFor maps a pipeline error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrProhibitedQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrVectorStoreUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrEmptyCorpus),
		errors.Is(err, domain.ErrBuildInProgress):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON body with the mapped status.
// Internal errors are logged and their detail hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		msg = "internal error"
	}
	if errors.Is(err, domain.ErrProhibitedQuery) {
		msg = domain.ErrProhibitedQuery.Error()
	}
	jsonError(w, msg, code)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
