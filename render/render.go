// Package render draws split streams on a terminal. Committed blocks
// are rendered through glamour exactly once and appended to the output;
// only the pending block is repainted as it grows, which is what keeps
// long streams flicker-free.
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/samsaffron/mdstream"
)

// DetectStyle picks a glamour standard style from the terminal
// background.
func DetectStyle() string {
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// Printer renders updates from a Stream. With a positive width it owns
// the cursor: the pending block is drawn and erased in place. Without a
// width it degrades to flowing, append-only output and pending content
// stays invisible until it commits.
type Printer struct {
	out   io.Writer
	tr    *glamour.TermRenderer
	width int

	// Terminal lines currently occupied by the painted pending block
	// and by everything printed since construction. The latter bounds
	// what a reset can retract.
	pendingHeight int
	totalHeight   int
}

// NewPrinter builds a printer. style is a glamour standard style name
// ("dark", "light", "notty", ...); width <= 0 selects flowing mode.
func NewPrinter(out io.Writer, style string, width int) (*Printer, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width-1))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Printer{out: out, tr: tr, width: width}, nil
}

// Apply draws one update: erase the old pending paint, append newly
// committed blocks, repaint the pending view.
func (p *Printer) Apply(u mdstream.Update) error {
	if p.width > 0 {
		if u.Reset {
			// Retract everything we still control; the pending block
			// now spans the whole document and repaints below.
			if err := p.clearLines(p.totalHeight); err != nil {
				return err
			}
			p.totalHeight = 0
			p.pendingHeight = 0
		} else if p.pendingHeight > 0 {
			if err := p.clearLines(p.pendingHeight); err != nil {
				return err
			}
			p.totalHeight -= p.pendingHeight
			p.pendingHeight = 0
		}
	}

	for _, b := range u.Committed {
		rendered, err := p.render(b.Raw)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(p.out, rendered); err != nil {
			return err
		}
		p.totalHeight += p.countLines(rendered)
	}

	if p.width <= 0 || u.Pending == nil {
		return nil
	}
	rendered, err := p.render(u.Pending.View())
	if err != nil {
		return err
	}
	if _, err := io.WriteString(p.out, rendered); err != nil {
		return err
	}
	p.pendingHeight = p.countLines(rendered)
	p.totalHeight += p.pendingHeight
	return nil
}

func (p *Printer) render(src string) (string, error) {
	out, err := p.tr.Render(src)
	if err != nil {
		return "", err
	}
	// Glamour pads renders with blank lines that stack up between
	// consecutive blocks; keep one trailing newline.
	return strings.TrimRight(out, "\n") + "\n", nil
}

// clearLines moves the cursor up and erases to the end of the screen.
func (p *Printer) clearLines(n int) error {
	if n <= 0 {
		return nil
	}
	seq := ansi.CursorUp(n) + ansi.CursorHorizontalAbsolute(1) + ansi.EraseDisplay(0)
	_, err := io.WriteString(p.out, seq)
	return err
}

// countLines reports how many terminal rows the rendered string takes,
// accounting for wrapping at the configured width. ANSI sequences are
// excluded from width measurement.
func (p *Printer) countLines(rendered string) int {
	if rendered == "" {
		return 0
	}
	total := 0
	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		if i == len(lines)-1 && line == "" {
			continue
		}
		w := ansi.StringWidth(line)
		switch {
		case w == 0:
			total++
		case p.width > 0:
			total += (w + p.width - 1) / p.width
		default:
			total++
		}
	}
	return total
}
