// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// Package auth extracts and decodes the bearer credential on API requests.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims is the subset of JWT claims the service consumes.
type Claims struct {
	Subject string
	Email   string
}

// Verifier decodes bearer tokens. With a secret configured it also
// validates the HMAC signature; without one it decodes claims only.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Authenticate extracts the bearer token from r and decodes its claims.
// It fails closed: a missing, malformed, or subject-less token is rejected.
func (v *Verifier) Authenticate(r *http.Request) (Claims, error) {
	raw, err := extractBearer(r)
	if err != nil {
		return Claims{}, err
	}
	return v.Decode(raw)
}

// Decode parses a raw JWT and returns its claims.
func (v *Verifier) Decode(raw string) (Claims, error) {
	mapClaims := jwt.MapClaims{}

	var err error
	if len(v.secret) == 0 {
		_, _, err = jwt.NewParser().ParseUnverified(raw, mapClaims)
	} else {
		_, err = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})).ParseWithClaims(
			raw, mapClaims,
			func(t *jwt.Token) (any, error) { return v.secret, nil },
		)
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}

	email, _ := mapClaims["email"].(string)
	return Claims{Subject: sub, Email: email}, nil
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
