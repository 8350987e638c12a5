package mdstream

import "fmt"

// BlockID identifies a block within one Stream. IDs increase monotonically
// in emission order and are never reused, not even across a reset.
type BlockID int64

// BlockStatus reports whether a block can still change.
type BlockStatus int

const (
	// StatusCommitted blocks are immutable for the rest of the stream.
	StatusCommitted BlockStatus = iota
	// StatusPending marks the single tail block that may still grow or
	// change kind as more input arrives.
	StatusPending
)

func (s BlockStatus) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusPending:
		return "pending"
	}
	return fmt.Sprintf("BlockStatus(%d)", int(s))
}

// BlockKind is a best-effort hint about what a block contains. Downstream
// parsers should treat it as advisory; the raw text is authoritative.
type BlockKind int

const (
	KindUnknown BlockKind = iota
	KindParagraph
	KindHeading
	KindList
	KindBlockQuote
	KindCodeFence
	KindHTMLBlock
	KindTable
	KindThematicBreak
	KindMathBlock
	KindFootnoteDefinition
)

var kindNames = map[BlockKind]string{
	KindUnknown:            "unknown",
	KindParagraph:          "paragraph",
	KindHeading:            "heading",
	KindList:               "list",
	KindBlockQuote:         "blockquote",
	KindCodeFence:          "code_fence",
	KindHTMLBlock:          "html_block",
	KindTable:              "table",
	KindThematicBreak:      "thematic_break",
	KindMathBlock:          "math_block",
	KindFootnoteDefinition: "footnote_definition",
}

func (k BlockKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BlockKind(%d)", int(k))
}

// Block is one unit of split output. Raw is the exact source slice with
// newline-normalized line endings. For pending blocks, Display holds a
// transformer-rewritten view that is safe to hand to a renderer; it is
// only meaningful when HasDisplay is true (the rewritten view can
// legitimately be shorter than Raw, or empty, when an incomplete image
// was dropped).
type Block struct {
	ID         BlockID     `json:"id"`
	Status     BlockStatus `json:"status"`
	Kind       BlockKind   `json:"kind"`
	Raw        string      `json:"raw"`
	Display    string      `json:"display,omitempty"`
	HasDisplay bool        `json:"has_display,omitempty"`
}

// View returns the text a renderer should draw: Display when the
// transformer pipeline rewrote the pending tail, Raw otherwise.
func (b Block) View() string {
	if b.HasDisplay {
		return b.Display
	}
	return b.Raw
}

// Update is the result of one Append or Finalize call.
type Update struct {
	// Reset tells consumers to discard every previously committed block
	// and rebuild from Pending. It is set when the stream collapses into
	// single-block mode mid-stream (see FootnoteSingleBlock).
	Reset bool `json:"reset,omitempty"`
	// Committed lists blocks finalized by this call, in order.
	Committed []Block `json:"committed,omitempty"`
	// Pending is a snapshot of the current open block, if any.
	Pending *Block `json:"pending,omitempty"`
	// Invalidated lists ids of previously committed blocks whose
	// interpretation changed (a reference or footnote definition for a
	// label they use was just committed). First-occurrence order, no
	// duplicates.
	Invalidated []BlockID `json:"invalidated,omitempty"`
}

// Snapshot is a read-only view of everything the stream has produced.
type Snapshot struct {
	Committed []Block
	Pending   *Block
}
