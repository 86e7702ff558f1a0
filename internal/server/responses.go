package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// writeJSON writes a successful response body using the same envelope the
// CLI prints, so a client sees one consistent shape whether it talks to
// the socket or pipes a CLI invocation's stdout.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(output.Success(data))
}

// writeError translates the error-kind taxonomy (spec.md §7) into a status
// code and writes the envelope's error fields.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(output.Error(err))
}

func statusFor(err error) int {
	var notFound *store.NotFoundError
	var invalidToken *store.InvalidTokenError
	var accessDenied *store.AccessDeniedError
	var invalidArg *store.InvalidArgumentError
	var conflict *store.ConflictError
	var versionConflict *store.VersionConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalidToken):
		return http.StatusUnauthorized
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &invalidArg):
		return http.StatusBadRequest
	case errors.As(err, &conflict), errors.As(err, &versionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &store.InvalidArgumentError{Field: "body", Reason: err.Error()}
	}
	return nil
}
