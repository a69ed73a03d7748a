// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error kinds. Validation and auth failures abort before any collaborator
// runs; upstream failures carry the collaborator message through for
// diagnosability; unknown failures show a generic message and keep the
// detail in logs.
const (
	KindConfiguration = "configuration"
	KindValidation    = "validation"
	KindAuth          = "auth"
	KindUpstream      = "upstream"
	KindUnknown       = "unknown"
)

// Error is a failure the transport shell can report to a client.
type Error struct {
	Kind    string
	Status  int
	Message string // user-facing
	Err     error  // underlying detail, logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

func unauthorizedError(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msg, Err: err}
}

func forbiddenError(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusForbidden, Message: msg}
}

func upstreamError(err error) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
}

func unknownError(err error) *Error {
	return &Error{Kind: KindUnknown, Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// envelope is the JSON body of every /initiate-call response.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	CallSID   string `json:"call_sid,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeSuccess(w http.ResponseWriter, requestID, message, callSID string) {
	writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Message:   message,
		CallSID:   callSID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	})
}

func writeError(w http.ResponseWriter, requestID string, apiErr *Error) {
	writeJSON(w, apiErr.Status, envelope{
		Success:   false,
		Error:     apiErr.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	})
}
