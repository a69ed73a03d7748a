// Package speech synthesizes reply text into audio with Amazon Polly.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Synthesizer renders text as MP3 audio.
type Synthesizer struct {
	client synthClient
}

func New(ctx context.Context, region string) (*Synthesizer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Synthesizer{client: polly.NewFromConfig(awsCfg)}, nil
}

// NewWithClient injects a Polly client, for tests.
func NewWithClient(client synthClient) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize converts reply text to MP3 bytes in the given voice. The voice
// is the caller's stored preference, already defaulted upstream.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       pollytypes.EngineNeural,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(voice),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("polly synthesize (%s): %w", apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	if out == nil || out.AudioStream == nil {
		return nil, errors.New("polly returned empty audio stream")
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("polly returned zero-length audio")
	}
	return audio, nil
}
