// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// Package signature validates Twilio webhook request signatures.
//
// Twilio signs every webhook by concatenating the request URL with each
// POST parameter key and value, sorted by key, and computing an HMAC-SHA1
// over the result with the account auth token as the key. The base64 digest
// travels in the X-Twilio-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"sort"
)

// Header carries the signature on every Twilio webhook.
const Header = "X-Twilio-Signature"

var (
	ErrMissingSignature = errors.New("missing twilio signature")
	ErrInvalidSignature = errors.New("invalid twilio signature")
)

// Expected computes the signature Twilio would attach to a request for
// canonicalURL with the given POST parameters.
func Expected(authToken, canonicalURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(canonicalURL))
	for _, k := range keys {
		for _, v := range params[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided matches the expected signature for the
// canonical URL and parameters. Comparison is constant time.
func Verify(authToken, provided, canonicalURL string, params url.Values) bool {
	if provided == "" || canonicalURL == "" {
		return false
	}
	want := Expected(authToken, canonicalURL, params)
	return hmac.Equal([]byte(want), []byte(provided))
}

// VerifyRequest validates the signature header on an inbound webhook.
// The form must already be parsed. Any failure to reconstruct the original
// URL means the request is not verified; there is no verified-by-default
// path.
func VerifyRequest(authToken string, r *http.Request) error {
	provided := r.Header.Get(Header)
	if provided == "" {
		return ErrMissingSignature
	}
	canonical, err := RequestURL(r)
	if err != nil {
		return ErrInvalidSignature
	}
	if !Verify(authToken, provided, canonical, r.PostForm) {
		return ErrInvalidSignature
	}
	return nil
}

// RequestURL reconstructs the absolute URL as the original caller signed it.
// Proxies in front of the service rewrite scheme and host, so the forwarded
// headers win when present and the plain request host is the fallback.
func RequestURL(r *http.Request) (string, error) {
	origin, err := Origin(r)
	if err != nil {
		return "", err
	}
	u := *r.URL
	u.Scheme = ""
	u.Host = ""
	return origin + u.String(), nil
}

// Origin returns scheme://host for the request as the original caller saw
// it, preferring X-Forwarded-Proto and X-Forwarded-Host.
func Origin(r *http.Request) (string, error) {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return "", errors.New("request host unknown")
	}
	return scheme + "://" + host, nil
}
