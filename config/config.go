// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

package config

import (
	"os"
	"strings"
)

// Environment variable names for every required secret. The gate checks all
// of them up front so an operator sees the complete list in one failure.
const (
	EnvTwilioAccountSID = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvTwilioFromNumber = "TWILIO_FROM_NUMBER"
	EnvSupabaseURL      = "SUPABASE_URL"
	EnvSupabaseKey      = "SUPABASE_SERVICE_ROLE_KEY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvAWSRegion        = "AWS_REGION"
	EnvAudioBucket      = "AUDIO_BUCKET"
)

// Optional settings.
const (
	EnvJWTSecret     = "SUPABASE_JWT_SECRET"
	EnvPublicBaseURL = "PUBLIC_BASE_URL"
	EnvListenAddr    = "LISTEN_ADDR"
)

// Config holds every secret and setting the service needs. It is built once
// at process start and passed down; no component reads the environment on
// its own after this.
type Config struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SupabaseURL        string
	SupabaseServiceKey string

	OpenAIKey string

	AWSRegion   string
	AudioBucket string

	// JWTSecret enables bearer-token signature validation when set. Empty
	// means claims are decoded without signature verification.
	JWTSecret string

	// PublicBaseURL overrides webhook URL construction. When empty the
	// webhook base is derived from forwarded headers on each request.
	PublicBaseURL string

	ListenAddr string
}

// ConfigurationError reports every missing secret at once, not just the
// first one encountered.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Missing, ", ")
}

// Load reads the full environment contract. It returns a ConfigurationError
// naming all absent variables when any required secret is missing.
func Load() (*Config, error) {
	missing := make([]string, 0)

	get := func(name string) string {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	cfg := &Config{
		TwilioAccountSID:   get(EnvTwilioAccountSID),
		TwilioAuthToken:    get(EnvTwilioAuthToken),
		TwilioFromNumber:   get(EnvTwilioFromNumber),
		SupabaseURL:        get(EnvSupabaseURL),
		SupabaseServiceKey: get(EnvSupabaseKey),
		OpenAIKey:          get(EnvOpenAIKey),
		AWSRegion:          get(EnvAWSRegion),
		AudioBucket:        get(EnvAudioBucket),

		JWTSecret:     strings.TrimSpace(os.Getenv(EnvJWTSecret)),
		PublicBaseURL: strings.TrimSpace(os.Getenv(EnvPublicBaseURL)),
		ListenAddr:    strings.TrimSpace(os.Getenv(EnvListenAddr)),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}
	return cfg, nil
}
