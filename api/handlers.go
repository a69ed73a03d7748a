// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// Package api is the transport shell: routing, CORS preflight, request
// authentication, and the error envelopes for both endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sprucehealth/voicebridge/auth"
	"github.com/sprucehealth/voicebridge/config"
	"github.com/sprucehealth/voicebridge/signature"
	"github.com/sprucehealth/voicebridge/turn"
)

// WebhookPath is where Twilio posts every conversational turn.
const WebhookPath = "/twiml-webhook"

// Collaborator contracts consumed by the handlers.
type (
	Authenticator interface {
		Authenticate(r *http.Request) (auth.Claims, error)
	}
	Dialer interface {
		StartConversation(toNumber, webhookURL string) (string, error)
	}
	TurnResponder interface {
		RespondToTurn(ctx context.Context, requestID, userID string, tc turn.Context, callbackURL string) (string, error)
	}
)

// Handler serves both endpoints. It holds no per-call state: every request
// is an independent unit of work.
type Handler struct {
	cfg       *config.Config
	auth      Authenticator
	dialer    Dialer
	responder TurnResponder
	logger    *zap.Logger
}

func NewHandler(cfg *config.Config, authn Authenticator, dialer Dialer, responder TurnResponder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, auth: authn, dialer: dialer, responder: responder, logger: logger}
}

type initiateCallRequest struct {
	UserID        string `json:"user_id"`
	ToPhoneNumber string `json:"to_phone_number"`
}

// InitiateCall authenticates the client and starts the outbound call whose
// webhook loop drives the conversation.
func (h *Handler) InitiateCall(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := h.logger.With(zap.String("requestId", requestID), zap.String("path", r.URL.Path))

	if r.Method != http.MethodPost {
		writeError(w, requestID, validationError("method not allowed"))
		return
	}

	claims, err := h.auth.Authenticate(r)
	if err != nil {
		log.Warn("authentication failed", zap.Error(err))
		writeError(w, requestID, unauthorizedError("invalid or missing bearer token", err))
		return
	}

	var req initiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, validationError("invalid JSON body"))
		return
	}
	if req.UserID == "" || req.ToPhoneNumber == "" {
		writeError(w, requestID, validationError("user_id and to_phone_number are required"))
		return
	}

	// The only authorization boundary: the token subject must be the user
	// the call is requested for.
	if claims.Subject != req.UserID {
		log.Warn("identity mismatch", zap.String("user_id", req.UserID))
		writeError(w, requestID, forbiddenError("user_id does not match the authenticated user"))
		return
	}

	webhookURL, err := h.webhookURL(r, req.UserID)
	if err != nil {
		log.Error("webhook URL construction failed", zap.Error(err))
		writeError(w, requestID, unknownError(err))
		return
	}

	callSID, err := h.dialer.StartConversation(req.ToPhoneNumber, webhookURL)
	if err != nil {
		log.Error("call creation failed", zap.Error(err))
		writeError(w, requestID, upstreamError(err))
		return
	}

	log.Info("call initiated", zap.String("user_id", req.UserID), zap.String("call_sid", callSID))
	writeSuccess(w, requestID, "Call initiated", callSID)
}

// TwimlWebhook handles one conversational turn. Signature verification and
// routing validation happen before any collaborator is invoked; a failure
// here costs nothing upstream.
func (h *Handler) TwimlWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := h.logger.With(zap.String("requestId", requestID), zap.String("path", r.URL.Path))

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := signature.VerifyRequest(h.cfg.TwilioAuthToken, r); err != nil {
		log.Warn("signature verification failed", zap.Error(err))
		http.Error(w, "Invalid Twilio signature", http.StatusForbidden)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "Missing user_id parameter", http.StatusBadRequest)
		return
	}

	tc := turn.Classify(r.PostForm)
	log.Info("turn received",
		zap.String("user_id", userID),
		zap.String("call_sid", r.PostForm.Get("CallSid")),
		zap.String("call_status", r.PostForm.Get("CallStatus")),
		zap.Bool("continuation", tc.Kind == turn.Continuation))

	// The gather on the response posts back to this same URL, so the loop
	// carries the user id without any server-side session.
	callbackURL, err := signature.RequestURL(r)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	body, err := h.responder.RespondToTurn(r.Context(), requestID, userID, tc, callbackURL)
	if err != nil {
		// No markup can be built; Twilio sees the bare error and ends the
		// call on its own terms.
		log.Error("turn pipeline failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) webhookURL(r *http.Request, userID string) (string, error) {
	base := h.cfg.PublicBaseURL
	if base == "" {
		origin, err := signature.Origin(r)
		if err != nil {
			return "", err
		}
		base = origin
	}
	return base + WebhookPath + "?user_id=" + url.QueryEscape(userID), nil
}
