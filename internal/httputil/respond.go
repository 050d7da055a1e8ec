// Package httputil provides JSON response helpers for the gateway.
//
// Success responses use {"success":true,"data":...}. Error responses use
// {"success":false,"error":{"code","message"}} plus a reference_id on
// server-side failures so support can locate the detailed logs.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/harborlane/signup-gateway/internal/errors"
)

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success     bool      `json:"success"`
	Error       errorBody `json:"error"`
	ReferenceID string    `json:"reference_id,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, successEnvelope{Success: true, Data: data})
}

// WriteErrorResponse writes an error envelope. referenceID may be empty for
// client errors.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message, referenceID string) {
	WriteJSON(w, status, errorEnvelope{
		Success:     false,
		Error:       errorBody{Code: code, Message: message},
		ReferenceID: referenceID,
	})
}

// WriteServiceError maps err to the wire. Only the ServiceError's code and
// client-safe message are serialized; details and causes stay server-side.
func WriteServiceError(w http.ResponseWriter, err error, referenceID string) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("", err)
	}
	WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, referenceID)
}

// Unauthorized writes a 401 with an optional message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteErrorResponse(w, http.StatusUnauthorized, string(errors.ErrUnauthorized), message, "")
}

// BadRequest writes a 400 with the given code and message.
func BadRequest(w http.ResponseWriter, code, message string) {
	WriteErrorResponse(w, http.StatusBadRequest, code, message, "")
}
