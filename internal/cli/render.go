package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/source"
)

var (
	chunkSize  int
	chunkDelay time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Replay a Markdown file (or stdin) through the streaming renderer",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().IntVar(&chunkSize, "chunk-size", 64, "Bytes per simulated chunk")
	renderCmd.Flags().DurationVar(&chunkDelay, "delay", 0, "Pause between chunks (e.g. 20ms)")
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := newApplier(cfg)
	if err != nil {
		return err
	}
	src := source.NewReplay(in, chunkSize, chunkDelay)
	return runStream(cmd.Context(), cfg, src, out)
}
