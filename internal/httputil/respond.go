// Package httputil provides JSON request and response helpers for handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	svcerrors "github.com/lotta-llamas/api/internal/errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already out, nothing left to do.
			return
		}
	}
}

// WriteError maps err to its HTTP status and writes the error body.
func WriteError(w http.ResponseWriter, err error) {
	if svcErr := svcerrors.GetServiceError(err); svcErr != nil {
		WriteJSON(w, svcErr.HTTPStatus, ErrorResponse{
			Error:   svcErr.Message,
			Code:    string(svcErr.Code),
			Details: svcErr.Details,
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
		Code:  string(svcerrors.CodeInternal),
	})
}

// DecodeJSON reads a bounded JSON request body into target.
func DecodeJSON(r *http.Request, target interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
