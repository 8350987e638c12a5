package source

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicSource streams one model turn's text deltas.
type AnthropicSource struct {
	client *anthropic.Client
	model  string
	prompt string
}

// NewAnthropicSource builds a source for a single prompt. The explicit
// apiKey wins; otherwise ANTHROPIC_API_KEY from the environment is used.
func NewAnthropicSource(apiKey, model, prompt string) (*AnthropicSource, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: no API key in config or ANTHROPIC_API_KEY")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSource{client: &client, model: model, prompt: prompt}, nil
}

func (s *AnthropicSource) Name() string {
	return fmt.Sprintf("anthropic (%s)", s.model)
}

func (s *AnthropicSource) Run(ctx context.Context, emit func(string) error) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(s.prompt)),
		},
	}

	stream := s.client.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					if err := emit(delta.Text); err != nil {
						return err
					}
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	return nil
}
