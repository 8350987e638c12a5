package source

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAISource streams one model turn's text deltas via the Responses
// API.
type OpenAISource struct {
	client *openai.Client
	model  string
	prompt string
}

// NewOpenAISource builds a source for a single prompt. The explicit
// apiKey wins; otherwise OPENAI_API_KEY from the environment is used.
func NewOpenAISource(apiKey, model, prompt string) (*OpenAISource, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: no API key in config or OPENAI_API_KEY")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISource{client: &client, model: model, prompt: prompt}, nil
}

func (s *OpenAISource) Name() string {
	return fmt.Sprintf("openai (%s)", s.model)
}

func (s *OpenAISource) Run(ctx context.Context, emit func(string) error) error {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(s.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(s.prompt),
		},
	}

	stream := s.client.Responses.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		if event.Type == "response.output_text.delta" && event.Text != "" {
			if err := emit(event.Text); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}
