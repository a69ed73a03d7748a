// Package turn classifies webhook callbacks into conversational turns and
// builds the generation instruction for each one. Everything here is pure
// so the conversation logic is testable without any network access.
package turn

import (
	"fmt"
	"net/url"
	"strings"
)

// Form fields Twilio posts after a speech gather.
const (
	FieldSpeechResult = "SpeechResult"
	FieldConfidence   = "Confidence"
)

// Kind is the conversational phase of a single callback.
type Kind int

const (
	// Initial is the first webhook of a call: nothing has been said yet.
	Initial Kind = iota
	// Continuation carries the caller's transcribed utterance.
	Continuation
)

// Context describes one turn of the conversation. It lives only for the
// duration of a single callback; continuity across turns is reconstructed
// from the webhook form, never remembered.
type Context struct {
	Kind       Kind
	Utterance  string
	Confidence string
}

// Classify derives the turn phase from the parsed webhook form. Only the
// presence of a non-empty SpeechResult field is consulted.
func Classify(form url.Values) Context {
	utterance := form.Get(FieldSpeechResult)
	if utterance == "" {
		return Context{Kind: Initial}
	}
	return Context{
		Kind:       Continuation,
		Utterance:  utterance,
		Confidence: form.Get(FieldConfidence),
	}
}

// Prompt builds the natural-language instruction handed to the generation
// collaborator. Recent goals, when known, anchor the persona's side of the
// conversation.
func Prompt(tc Context, recentGoals []string) string {
	var b strings.Builder

	b.WriteString("You are a warm, encouraging accountability partner speaking on a phone call. ")
	if len(recentGoals) > 0 {
		fmt.Fprintf(&b, "The caller is currently working toward: %s. ", strings.Join(recentGoals, "; "))
	}

	switch tc.Kind {
	case Continuation:
		fmt.Fprintf(&b, "The caller just said: %q. Reply to them in context. ", tc.Utterance)
	default:
		b.WriteString("The caller just picked up. Produce an opening greeting that says who you are and asks how their progress is going. ")
	}

	b.WriteString("Keep it to two short spoken sentences. Plain text only, no stage directions.")
	return b.String()
}
