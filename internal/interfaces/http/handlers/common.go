// Package handlers implements the HTTP handlers of the Molscope API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/molscope/molscope/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps an application error onto its HTTP status.  Codes that
// map to 5xx get their default message instead of the error text, so
// internals never leak to clients.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = errors.DefaultMessageForCode(code)
	}

	writeJSON(w, status, ErrorResponse{Code: string(code), Message: message})
}

// decodeJSON reads the request body into dst, translating malformed JSON
// into the uniform bad-request error.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "request body is not valid JSON")
	}
	return nil
}
