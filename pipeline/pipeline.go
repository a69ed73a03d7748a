// SPDX-License-Identifier: GPL-3.0-or-later

// Copyright (c) 2025 Spruce Health

// Package pipeline runs the sequential stages that turn one conversational
// turn into playable audio and TwiML. Each stage must finish before the
// next begins, and any failure short-circuits the rest of the turn. There
// is no retry anywhere: every upstream failure is terminal for its request.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sprucehealth/voicebridge/profile"
	"github.com/sprucehealth/voicebridge/storage"
	"github.com/sprucehealth/voicebridge/turn"
	"github.com/sprucehealth/voicebridge/twiml"
)

// Stage names carried on StageError.
const (
	StageProfile    = "profile"
	StageGeneration = "generation"
	StageSynthesis  = "synthesis"
	StageStorage    = "storage"
	StageMarkup     = "markup"
)

// StageError wraps a collaborator failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Collaborator contracts. Each is the narrow slice of an external service
// this pipeline consumes; the implementations live in their own packages.
type (
	ProfileStore interface {
		Fetch(ctx context.Context, userID string) (profile.Profile, error)
	}
	Generator interface {
		Generate(ctx context.Context, userID, instruction string) (string, error)
	}
	Synthesizer interface {
		Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	}
	AudioStore interface {
		Put(ctx context.Context, key string, audio []byte) (string, error)
	}
)

// Responder drives one turn end to end.
type Responder struct {
	profiles ProfileStore
	gen      Generator
	synth    Synthesizer
	store    AudioStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewResponder(profiles ProfileStore, gen Generator, synth Synthesizer, store AudioStore, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{
		profiles: profiles,
		gen:      gen,
		synth:    synth,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// RespondToTurn runs profile lookup, reply generation, synthesis, and the
// storage write for one turn, then renders the TwiML that plays the reply
// and points the next gather back at callbackURL.
func (r *Responder) RespondToTurn(ctx context.Context, requestID, userID string, tc turn.Context, callbackURL string) (string, error) {
	log := r.logger.With(zap.String("requestId", requestID), zap.String("user_id", userID))

	prof, err := r.profiles.Fetch(ctx, userID)
	if err != nil {
		return "", &StageError{Stage: StageProfile, Err: err}
	}

	instruction := turn.Prompt(tc, prof.RecentGoals)

	reply, err := r.gen.Generate(ctx, userID, instruction)
	if err != nil {
		return "", &StageError{Stage: StageGeneration, Err: err}
	}
	log.Debug("reply generated", zap.Int("reply_chars", len(reply)))

	audio, err := r.synth.Synthesize(ctx, reply, prof.VoicePreference)
	if err != nil {
		return "", &StageError{Stage: StageSynthesis, Err: err}
	}

	// A storage failure discards the synthesized audio; the turn is lost.
	key := storage.ObjectKey(requestID, r.now())
	locator, err := r.store.Put(ctx, key, audio)
	if err != nil {
		return "", &StageError{Stage: StageStorage, Err: err}
	}
	log.Info("turn audio stored",
		zap.String("key", key),
		zap.Int("audio_bytes", len(audio)))

	body, err := twiml.Render(twiml.ConversationTurn(locator, callbackURL))
	if err != nil {
		return "", &StageError{Stage: StageMarkup, Err: err}
	}
	return body, nil
}
