package render

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/samsaffron/mdstream"
)

// PlainPrinter is the no-TTY fallback: committed blocks stream out as
// raw text, append-only, with fenced code run through chroma so piped
// output still gets syntax colors when the consumer wants them.
type PlainPrinter struct {
	out       io.Writer
	highlight bool
	style     string
}

// NewPlainPrinter writes raw block text to out. With highlight set,
// fenced code bodies are colorized via chroma's terminal formatter.
func NewPlainPrinter(out io.Writer, highlight bool) *PlainPrinter {
	return &PlainPrinter{out: out, highlight: highlight, style: "monokai"}
}

// Apply appends newly committed blocks. Pending content is withheld
// until commit; there is no cursor to repaint it with.
func (p *PlainPrinter) Apply(u mdstream.Update) error {
	for _, b := range u.Committed {
		if p.highlight && b.Kind == mdstream.KindCodeFence {
			if err := p.writeFence(b.Raw); err != nil {
				return err
			}
			continue
		}
		if _, err := io.WriteString(p.out, b.Raw); err != nil {
			return err
		}
	}
	return nil
}

// writeFence prints the fence delimiters verbatim and highlights the
// body with the fence's info string as the lexer name.
func (p *PlainPrinter) writeFence(raw string) error {
	lines := strings.SplitAfter(raw, "\n")
	if len(lines) < 2 {
		_, err := io.WriteString(p.out, raw)
		return err
	}

	open := lines[0]
	lang := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(open), "`~"))
	body := lines[1:]
	closing := ""
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" && strings.Trim(last, "`~") == "" {
		closing = lines[len(lines)-1]
		body = lines[1 : len(lines)-1]
	} else if len(lines) >= 2 {
		if last := strings.TrimSpace(lines[len(lines)-2]); strings.Trim(last, "`~") == "" && last != "" {
			closing = lines[len(lines)-2]
			body = lines[1 : len(lines)-2]
		}
	}

	if _, err := io.WriteString(p.out, open); err != nil {
		return err
	}
	code := strings.Join(body, "")
	if err := quick.Highlight(p.out, code, lang, "terminal256", p.style); err != nil {
		// Unknown lexer or formatter trouble: fall back to plain text.
		if _, werr := io.WriteString(p.out, code); werr != nil {
			return werr
		}
	}
	if closing != "" {
		if _, err := io.WriteString(p.out, closing); err != nil {
			return err
		}
	}
	return nil
}
