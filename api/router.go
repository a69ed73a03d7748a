// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

package api

import (
	"net/http"
)

// NewRouter wires both endpoints plus the liveness probe.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/initiate-call", withCORS(h.InitiateCall))
	mux.HandleFunc(WebhookPath, withCORS(h.TwimlWebhook))
	mux.HandleFunc("/healthz", h.Health)

	return mux
}

// withCORS answers preflight requests with a static allow list and stamps
// the headers on every response. OPTIONS never reaches the handler.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
