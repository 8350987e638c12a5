package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/mdstream"
	"github.com/samsaffron/mdstream/internal/config"
	"github.com/samsaffron/mdstream/internal/source"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [file]",
	Short: "Emit every update as NDJSON, for debugging adapters",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBlocks,
}

func init() {
	blocksCmd.Flags().IntVar(&chunkSize, "chunk-size", 64, "Bytes per simulated chunk")
}

// jsonUpdate shapes an Update for NDJSON output with string kinds.
type jsonUpdate struct {
	Reset       bool               `json:"reset,omitempty"`
	Committed   []jsonBlock        `json:"committed,omitempty"`
	Pending     *jsonBlock         `json:"pending,omitempty"`
	Invalidated []mdstream.BlockID `json:"invalidated,omitempty"`
}

type jsonBlock struct {
	ID      mdstream.BlockID `json:"id"`
	Kind    string           `json:"kind"`
	Raw     string           `json:"raw"`
	Display string           `json:"display,omitempty"`
}

func toJSONBlock(b mdstream.Block) jsonBlock {
	jb := jsonBlock{ID: b.ID, Kind: b.Kind.String(), Raw: b.Raw}
	if b.HasDisplay {
		jb.Display = b.Display
	}
	return jb
}

// ndjsonWriter implements applier by printing one JSON object per
// update; updates that carry nothing are skipped.
type ndjsonWriter struct {
	enc *json.Encoder

	updates   int
	committed int
	bytes     int
}

func (w *ndjsonWriter) Apply(u mdstream.Update) error {
	if len(u.Committed) == 0 && u.Pending == nil && !u.Reset && len(u.Invalidated) == 0 {
		return nil
	}
	ju := jsonUpdate{Reset: u.Reset, Invalidated: u.Invalidated}
	for _, b := range u.Committed {
		ju.Committed = append(ju.Committed, toJSONBlock(b))
		w.committed++
		w.bytes += len(b.Raw)
	}
	if u.Pending != nil {
		jb := toJSONBlock(*u.Pending)
		ju.Pending = &jb
	}
	w.updates++
	return w.enc.Encode(ju)
}

var summaryStyle = lipgloss.NewStyle().Faint(true).Italic(true)

func runBlocks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	w := &ndjsonWriter{enc: json.NewEncoder(os.Stdout)}
	src := source.NewReplay(in, chunkSize, 0)
	if err := runStream(cmd.Context(), cfg, src, w); err != nil {
		return err
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		summary := fmt.Sprintf("%d updates, %d blocks, %d bytes committed", w.updates, w.committed, w.bytes)
		fmt.Fprintln(os.Stderr, summaryStyle.Render(summary))
	}
	return nil
}
