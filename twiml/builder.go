package twiml

// Dialogue spoken around the gather. The fallback line only plays when the
// gather captured nothing before its timeout; Twilio then runs the Hangup
// on its own, without calling the webhook again.
const (
	listenPrompt = "I'm listening, go ahead."
	farewell     = "It sounds like you're done for now. Talk soon, goodbye!"
)

// How long the gather waits for the caller to start speaking.
const gatherTimeoutSeconds = "10"

// ConversationTurn builds the markup returned after every turn: play the
// synthesized reply, open a speech gather that posts the caller's next
// utterance back to actionURL, and hang up if nothing is captured.
func ConversationTurn(audioURL, actionURL string) *Response {
	return &Response{Children: []Node{
		&Play{URL: audioURL},
		&Gather{
			Input:         "speech",
			Timeout:       gatherTimeoutSeconds,
			SpeechTimeout: "auto",
			Action:        actionURL,
			Method:        "POST",
			Children: []Node{
				&Say{Text: listenPrompt},
			},
		},
		&Say{Text: farewell},
		&Hangup{},
	}}
}
