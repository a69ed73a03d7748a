// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// voicebridge serves the two webhook endpoints that drive outbound persona
// calls: /initiate-call for authenticated clients and /twiml-webhook for
// Twilio's per-turn callbacks.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sprucehealth/voicebridge/api"
	"github.com/sprucehealth/voicebridge/auth"
	"github.com/sprucehealth/voicebridge/config"
	"github.com/sprucehealth/voicebridge/genai"
	"github.com/sprucehealth/voicebridge/pipeline"
	"github.com/sprucehealth/voicebridge/profile"
	"github.com/sprucehealth/voicebridge/speech"
	"github.com/sprucehealth/voicebridge/storage"
	"github.com/sprucehealth/voicebridge/telephony"
)

func main() {
	// A .env file is a development convenience; absence is fine.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration incomplete", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	synth, err := speech.New(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Fatal("speech synthesizer init failed", zap.Error(err))
	}
	store, err := storage.New(ctx, cfg.AWSRegion, cfg.AudioBucket)
	if err != nil {
		logger.Fatal("audio store init failed", zap.Error(err))
	}

	profiles := profile.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, 0)
	generator := genai.New(cfg.OpenAIKey)
	responder := pipeline.NewResponder(profiles, generator, synth, store, logger)
	dialer := telephony.NewDialer(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)

	handler := api.NewHandler(cfg, auth.NewVerifier(cfg.JWTSecret), dialer, responder, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(handler),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
