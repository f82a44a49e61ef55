package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casaluce/netatmo2mqtt/internal/netatmo"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		RequestID: requestIDFrom(r.Context()),
	})
}

// writeVendorError maps a command failure onto an HTTP answer. Vendor
// rejections keep their original status code and message so callers see
// what the vendor said; everything else is a 502.
func writeVendorError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *netatmo.APIError
	if errors.As(err, &apiErr) {
		writeError(w, r, apiErr.StatusCode, apiErr.Message)
		return
	}
	writeError(w, r, http.StatusBadGateway, err.Error())
}
