package twiml

// Node is the interface for all TwiML AST nodes
type Node interface {
	isNode()
}

// Response is the root TwiML element
type Response struct {
	Children []Node
}

func (Response) isNode() {}

// Say outputs text-to-speech
type Say struct {
	Text     string
	Voice    string
	Language string
}

func (Say) isNode() {}

// Play plays an audio file
type Play struct {
	URL string
}

func (Play) isNode() {}

// Pause waits for a specified number of seconds
type Pause struct {
	Length int
}

func (Pause) isNode() {}

// Gather collects caller input
type Gather struct {
	Input         string // "dtmf", "speech", "dtmf speech"
	Timeout       string // seconds of silence before the gather gives up
	SpeechTimeout string // "auto" or a positive integer (in seconds)
	Action        string
	Method        string // "POST" or "GET"
	Children      []Node // Nested verbs to execute while gathering
}

func (Gather) isNode() {}

// Redirect fetches new TwiML from a URL
type Redirect struct {
	URL    string
	Method string
}

func (Redirect) isNode() {}

// Hangup ends the call
type Hangup struct{}

func (Hangup) isNode() {}
