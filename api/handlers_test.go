// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sprucehealth/voicebridge/auth"
	"github.com/sprucehealth/voicebridge/config"
	"github.com/sprucehealth/voicebridge/signature"
	"github.com/sprucehealth/voicebridge/turn"
)

const testAuthToken = "twilio-auth-token-0123456789abcdef"

type fakeAuth struct {
	claims auth.Claims
	err    error
}

func (f *fakeAuth) Authenticate(*http.Request) (auth.Claims, error) {
	return f.claims, f.err
}

type fakeDialer struct {
	calls    int
	toNumber string
	webhook  string
	sid      string
	err      error
}

func (f *fakeDialer) StartConversation(toNumber, webhookURL string) (string, error) {
	f.calls++
	f.toNumber = toNumber
	f.webhook = webhookURL
	if f.err != nil {
		return "", f.err
	}
	return f.sid, nil
}

type fakeResponder struct {
	calls    int
	userID   string
	tc       turn.Context
	callback string
	body     string
	err      error
}

func (f *fakeResponder) RespondToTurn(_ context.Context, _, userID string, tc turn.Context, callbackURL string) (string, error) {
	f.calls++
	f.userID = userID
	f.tc = tc
	f.callback = callbackURL
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

type handlerFixture struct {
	auth      *fakeAuth
	dialer    *fakeDialer
	responder *fakeResponder
	handler   http.Handler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		auth:      &fakeAuth{claims: auth.Claims{Subject: "u1"}},
		dialer:    &fakeDialer{sid: "CA0123456789abcdef0123456789abcdef"},
		responder: &fakeResponder{body: `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`},
	}
	cfg := &config.Config{
		TwilioAuthToken: testAuthToken,
		PublicBaseURL:   "https://hooks.example.com",
	}
	f.handler = NewRouter(NewHandler(cfg, f.auth, f.dialer, f.responder, nil))
	return f
}

func initiateRequest(body string) *http.Request {
	r := httptest.NewRequest("POST", "https://hooks.example.com/initiate-call", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer some-token")
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON envelope: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestInitiateCallSuccess(t *testing.T) {
	f := newHandlerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, initiateRequest(`{"user_id":"u1","to_phone_number":"+15551234567"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env["success"] != true {
		t.Errorf("success = %v", env["success"])
	}
	if sid, _ := env["call_sid"].(string); sid == "" {
		t.Error("call_sid is empty")
	}
	if env["requestId"] == "" || env["timestamp"] == "" {
		t.Errorf("missing requestId/timestamp: %v", env)
	}

	if f.dialer.toNumber != "+15551234567" {
		t.Errorf("dialed %q", f.dialer.toNumber)
	}
	if f.dialer.webhook != "https://hooks.example.com/twiml-webhook?user_id=u1" {
		t.Errorf("webhook URL = %q", f.dialer.webhook)
	}
}

func TestInitiateCallIdentityMismatch(t *testing.T) {
	f := newHandlerFixture() // token subject is u1

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, initiateRequest(`{"user_id":"u2","to_phone_number":"+15551234567"}`))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env["success"] != false {
		t.Errorf("success = %v", env["success"])
	}
	if f.dialer.calls != 0 {
		t.Errorf("dialer invoked %d times on rejected request", f.dialer.calls)
	}
}

func TestInitiateCallBadToken(t *testing.T) {
	f := newHandlerFixture()
	f.auth.err = auth.ErrInvalidToken

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, initiateRequest(`{"user_id":"u1","to_phone_number":"+15551234567"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if f.dialer.calls != 0 {
		t.Error("dialer invoked despite failed authentication")
	}
}

func TestInitiateCallValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"missing user_id", `{"to_phone_number":"+15551234567"}`},
		{"missing number", `{"user_id":"u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, initiateRequest(tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if f.dialer.calls != 0 {
				t.Error("dialer invoked on invalid request")
			}
		})
	}
}

func TestInitiateCallTelephonyFailure(t *testing.T) {
	f := newHandlerFixture()
	f.dialer.err = errors.New("create call: upstream exploded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, initiateRequest(`{"user_id":"u1","to_phone_number":"+15551234567"}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if msg, _ := env["error"].(string); !strings.Contains(msg, "upstream exploded") {
		t.Errorf("error message not passed through: %v", env["error"])
	}
}

func webhookRequest(t *testing.T, form url.Values, sign bool) *http.Request {
	t.Helper()
	target := "https://hooks.example.com/twiml-webhook?user_id=u1"
	r := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign {
		r.Header.Set(signature.Header, signature.Expected(testAuthToken, target, form))
	}
	return r
}

func TestTwimlWebhookInitialTurn(t *testing.T) {
	f := newHandlerFixture()
	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"in-progress"}}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, webhookRequest(t, form, true))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("Content-Type = %q, want text/xml", ct)
	}

	if f.responder.calls != 1 {
		t.Fatalf("responder calls = %d", f.responder.calls)
	}
	if f.responder.userID != "u1" {
		t.Errorf("userID = %q", f.responder.userID)
	}
	if f.responder.tc.Kind != turn.Initial {
		t.Errorf("turn kind = %v, want Initial", f.responder.tc.Kind)
	}
	if f.responder.callback != "https://hooks.example.com/twiml-webhook?user_id=u1" {
		t.Errorf("callback = %q", f.responder.callback)
	}
}

func TestTwimlWebhookContinuationTurn(t *testing.T) {
	f := newHandlerFixture()
	form := url.Values{
		"SpeechResult": {"it went great"},
		"Confidence":   {"0.93"},
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, webhookRequest(t, form, true))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.responder.tc.Kind != turn.Continuation || f.responder.tc.Utterance != "it went great" {
		t.Errorf("turn context = %+v", f.responder.tc)
	}
}

func TestTwimlWebhookTamperedSignature(t *testing.T) {
	f := newHandlerFixture()
	form := url.Values{"CallSid": {"CA1"}}

	r := webhookRequest(t, form, true)
	r.Header.Set(signature.Header, "tampered"+r.Header.Get(signature.Header))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "Invalid Twilio signature" {
		t.Errorf("body = %q", got)
	}
	if f.responder.calls != 0 {
		t.Errorf("responder invoked %d times on rejected webhook", f.responder.calls)
	}
}

func TestTwimlWebhookMissingSignature(t *testing.T) {
	f := newHandlerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, webhookRequest(t, url.Values{"CallSid": {"CA1"}}, false))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if f.responder.calls != 0 {
		t.Error("responder invoked despite missing signature")
	}
}

func TestTwimlWebhookMissingUserID(t *testing.T) {
	f := newHandlerFixture()
	form := url.Values{"CallSid": {"CA1"}}
	target := "https://hooks.example.com/twiml-webhook"

	r := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set(signature.Header, signature.Expected(testAuthToken, target, form))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user_id") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if f.responder.calls != 0 {
		t.Error("responder invoked despite missing routing parameter")
	}
}

func TestTwimlWebhookPipelineFailure(t *testing.T) {
	f := newHandlerFixture()
	f.responder.err = errors.New("generation: model unavailable")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, webhookRequest(t, url.Values{"CallSid": {"CA1"}}, true))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "model unavailable") {
		t.Errorf("error message not propagated: %q", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newHandlerFixture()

	for _, path := range []string{"/initiate-call", "/twiml-webhook"} {
		t.Run(path, func(t *testing.T) {
			r := httptest.NewRequest("OPTIONS", "https://hooks.example.com"+path, nil)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, r)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS allow-origin header")
			}
			if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "authorization") {
				t.Error("missing CORS allow-headers")
			}
		})
	}

	if f.dialer.calls != 0 || f.responder.calls != 0 {
		t.Error("preflight reached a handler")
	}
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture()

	r := httptest.NewRequest("GET", "https://hooks.example.com/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
