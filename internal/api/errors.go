package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// errorResponse is the JSON body returned for every failed request.
type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
}

// httpStatusFor maps an error to an HTTP status code based on its
// domain category.
func httpStatusFor(err error) int {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		return http.StatusInternalServerError
	}
	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatConflict:
		return http.StatusConflict
	case core.ErrCatConfig:
		return http.StatusBadRequest
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		resp.Error = domErr.Message
		resp.Code = domErr.Code
		resp.Category = string(domErr.Category)
	}
	writeJSON(w, httpStatusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding failures past this point cannot change the status line.
	_ = json.NewEncoder(w).Encode(v)
}
