package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// queryParam returns a URL query parameter.
func queryParam(r *http.Request, name string) string {
	return r.URL.Query().Get(name)
}

// requireField writes a 400 error and returns false when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError dispatches a ManagerError to its HTTP status per the
// taxonomy: FileNotFound/UnsupportedFileType are client errors, anything
// else (LspClientNotFound is an internal invariant violation, InternalError
// covers transport/subprocess failures) is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var mErr *lspDomain.ManagerError
	if errors.As(err, &mErr) {
		switch mErr.Kind {
		case lspDomain.ErrFileNotFound, lspDomain.ErrUnsupportedFileType:
			writeError(w, http.StatusBadRequest, mErr.Error())
			return
		default:
			slog.Error("internal error", "error", mErr)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	slog.Error("unhandled error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
