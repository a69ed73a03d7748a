// Package genai produces the persona's spoken reply text through the
// OpenAI chat completion API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You write short spoken replies for a phone call. " +
	"Never use markdown, lists, or emoji. Sound natural when read aloud."

// chatClient is the slice of the OpenAI client the generator uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces one reply per turn.
type Generator struct {
	client chatClient
	model  string
}

func New(apiKey string) *Generator {
	return &Generator{client: openai.NewClient(apiKey), model: openai.GPT4oMini}
}

// NewWithClient injects a chat client, for tests.
func NewWithClient(client chatClient, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate returns the reply text for one instruction. Failures are
// returned as-is for the pipeline to classify; there is no retry.
func (g *Generator) Generate(ctx context.Context, userID, instruction string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		User:      userID,
		MaxTokens: 150,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("chat completion returned empty reply")
	}
	return reply, nil
}
