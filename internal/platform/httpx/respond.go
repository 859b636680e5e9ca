// Package httpx implements the portal response envelope shared by every
// endpoint: {responseCode, responseMessage, data?, totalRecord?}.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body expected by portal clients.
type Envelope struct {
	ResponseCode    int         `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
	TotalRecord     *int        `json:"totalRecord,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, Envelope{
		ResponseCode:    http.StatusOK,
		ResponseMessage: message,
		Data:            data,
	})
}

// OKList sends a success envelope carrying a total record count for
// page-count computation on the client.
func OKList(w http.ResponseWriter, message string, data interface{}, total int) {
	JSON(w, http.StatusOK, Envelope{
		ResponseCode:    http.StatusOK,
		ResponseMessage: message,
		Data:            data,
		TotalRecord:     &total,
	})
}

// Fail sends an error envelope with the given status, optionally carrying
// detail data (such as a per-row validation report).
func Fail(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, Envelope{
		ResponseCode:    status,
		ResponseMessage: message,
		Data:            data,
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target interface{}) error {
	return json.NewDecoder(r.Body).Decode(target)
}
