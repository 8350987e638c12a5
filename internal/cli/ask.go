package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/source"
)

var (
	askProvider string
	askModel    string
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Stream a model answer through the splitter onto the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askProvider, "provider", "", "Override configured provider (anthropic, openai)")
	askCmd.Flags().StringVar(&askModel, "model", "", "Override configured model")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	provider := cfg.Provider
	if askProvider != "" {
		provider = askProvider
	}
	model := cfg.Model
	if askModel != "" {
		model = askModel
	}
	prompt := strings.Join(args, " ")

	var src source.Source
	switch provider {
	case config.ProviderAnthropic:
		src, err = source.NewAnthropicSource(cfg.AnthropicAPIKey, model, prompt)
	case config.ProviderOpenAI:
		src, err = source.NewOpenAISource(cfg.OpenAIAPIKey, model, prompt)
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	if err != nil {
		return err
	}

	out, err := newApplier(cfg)
	if err != nil {
		return err
	}
	return runStream(cmd.Context(), cfg, src, out)
}
