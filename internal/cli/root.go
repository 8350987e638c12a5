// Package cli implements the mdstream command line tool: replay files
// through the splitter, inspect block updates, or stream a model answer
// straight onto the terminal.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/mdstream"
	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/source"
	"github.com/samsaffron/mdstream/render"
)

var (
	debugMode bool
	styleFlag string
	widthFlag int
	plainFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "mdstream",
	Short: "Split streaming Markdown into stable blocks",
	Long: `mdstream renders Markdown as it streams in, committing each block
exactly once so long outputs never flicker.

Examples:
  mdstream render README.md --chunk-size 16 --delay 20ms
  cat notes.md | mdstream blocks
  mdstream ask "compare tabs and spaces, with a table"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&styleFlag, "style", "", "Glamour style (dark, light, notty, ...)")
	rootCmd.PersistentFlags().IntVar(&widthFlag, "width", 0, "Render width (0 = detect)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "Raw block output instead of glamour")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(askCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelWarn
	if debugMode {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// applier folds updates onto an output device.
type applier interface {
	Apply(u mdstream.Update) error
}

// newApplier picks glamour or plain output based on flags and TTY-ness.
func newApplier(cfg *config.Config) (applier, error) {
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))

	if plainFlag || !stdoutTTY {
		return render.NewPlainPrinter(os.Stdout, stdoutTTY), nil
	}

	width := widthFlag
	if width <= 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	style := styleFlag
	if style == "" {
		style = cfg.Style
	}
	if style == "" {
		style = render.DetectStyle()
	}
	slog.Debug("renderer configured", "style", style, "width", width)
	return render.NewPrinter(os.Stdout, style, width)
}

// runStream pumps a source through a fresh splitter into the applier.
func runStream(ctx context.Context, cfg *config.Config, src source.Source, out applier) error {
	s, err := mdstream.New(cfg.StreamOptions()...)
	if err != nil {
		return err
	}
	slog.Debug("streaming", "source", src.Name())
	if err := src.Run(ctx, func(chunk string) error {
		return out.Apply(s.Append([]byte(chunk)))
	}); err != nil {
		return err
	}
	return out.Apply(s.Finalize())
}
