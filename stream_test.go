package mdstream

import (
	"strings"
	"testing"
)

// mustStream builds a stream and fails the test on config errors.
func mustStream(t *testing.T, opts ...Option) *Stream {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

// feed appends chunks and finalizes, returning every committed block in
// order.
func feed(t *testing.T, s *Stream, chunks ...string) []Block {
	t.Helper()
	var out []Block
	for _, c := range chunks {
		u := s.Append([]byte(c))
		out = append(out, u.Committed...)
	}
	out = append(out, s.Finalize().Committed...)
	return out
}

func wantBlocks(t *testing.T, got []Block, want ...Block) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d blocks, want %d\ngot: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind {
			t.Errorf("block %d: kind = %v, want %v (raw %q)", i, got[i].Kind, want[i].Kind, got[i].Raw)
		}
		if got[i].Raw != want[i].Raw {
			t.Errorf("block %d: raw = %q, want %q", i, got[i].Raw, want[i].Raw)
		}
	}
}

func TestParagraphSplitOnBlankLine(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "one\ntwo\n\nthree\n")
	wantBlocks(t, got,
		Block{Kind: KindParagraph, Raw: "one\ntwo\n"},
		Block{Kind: KindParagraph, Raw: "three\n"},
	)
}

func TestCRLFSplitAcrossChunks(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "a\r", "\nb\n")
	wantBlocks(t, got, Block{Kind: KindParagraph, Raw: "a\nb\n"})
}

func TestLoneCarriageReturn(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "a\rb\n")
	wantBlocks(t, got, Block{Kind: KindParagraph, Raw: "a\nb\n"})
	for _, b := range got {
		if strings.Contains(b.Raw, "\r") {
			t.Errorf("raw contains carriage return: %q", b.Raw)
		}
	}
}

func TestFenceAcrossChunks(t *testing.T) {
	s := mustStream(t)

	u := s.Append([]byte("```rust\nfn main() {\n"))
	if len(u.Committed) != 0 {
		t.Fatalf("unexpected commits: %+v", u.Committed)
	}
	if u.Pending == nil || u.Pending.Kind != KindCodeFence {
		t.Fatalf("pending = %+v, want code fence", u.Pending)
	}

	u = s.Append([]byte("}\n```\n"))
	if len(u.Committed) != 1 {
		t.Fatalf("got %d commits, want 1", len(u.Committed))
	}
	want := "```rust\nfn main() {\n}\n```\n"
	if u.Committed[0].Raw != want {
		t.Errorf("raw = %q, want %q", u.Committed[0].Raw, want)
	}
	if u.Committed[0].Kind != KindCodeFence {
		t.Errorf("kind = %v, want code fence", u.Committed[0].Kind)
	}
}

func TestUnclosedFenceCommitsOnFinalize(t *testing.T) {
	s := mustStream(t)
	s.Append([]byte("```go\nx := 1\n"))
	u := s.Finalize()
	wantBlocks(t, u.Committed, Block{Kind: KindCodeFence, Raw: "```go\nx := 1\n"})
}

func TestHeadingCommitsImmediately(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("# Hello\n"))
	wantBlocks(t, u.Committed, Block{Kind: KindHeading, Raw: "# Hello\n"})
	if u.Pending != nil {
		t.Errorf("pending = %+v, want none", u.Pending)
	}
}

func TestSetextPromotesParagraph(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "Title\n===\nbody\n")
	wantBlocks(t, got,
		Block{Kind: KindHeading, Raw: "Title\n===\n"},
		Block{Kind: KindParagraph, Raw: "body\n"},
	)
}

func TestThematicBreakAfterParagraphIsSetext(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "Title\n---\n")
	wantBlocks(t, got, Block{Kind: KindHeading, Raw: "Title\n---\n"})
}

func TestThematicBreakStandalone(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("---\n"))
	wantBlocks(t, u.Committed, Block{Kind: KindThematicBreak, Raw: "---\n"})
}

func TestHTMLClosureWithoutBlankLine(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "<div>\nX\n</div>\nAfter\n")
	wantBlocks(t, got,
		Block{Kind: KindHTMLBlock, Raw: "<div>\nX\n</div>\n"},
		Block{Kind: KindParagraph, Raw: "After\n"},
	)
}

func TestHTMLCommentBlock(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "<!-- a\nnote -->\ntext\n")
	wantBlocks(t, got,
		Block{Kind: KindHTMLBlock, Raw: "<!-- a\nnote -->\n"},
		Block{Kind: KindParagraph, Raw: "text\n"},
	)
}

func TestHTMLSingleLineSelfContained(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("<img src=\"x.png\"/>\n"))
	wantBlocks(t, u.Committed, Block{Kind: KindHTMLBlock, Raw: "<img src=\"x.png\"/>\n"})
}

func TestHTMLBlankLineDoesNotCloseOpenBlock(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("<div>\n\nstill inside\n"))
	if len(u.Committed) != 0 {
		t.Fatalf("unexpected commits: %+v", u.Committed)
	}
	got := feed(t, s, "</div>\n")
	wantBlocks(t, got, Block{Kind: KindHTMLBlock, Raw: "<div>\n\nstill inside\n</div>\n"})
}

func TestListEndsAtBlankLine(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "- a\n- b\n\nAfter\n")
	wantBlocks(t, got,
		Block{Kind: KindList, Raw: "- a\n- b\n"},
		Block{Kind: KindParagraph, Raw: "After\n"},
	)
}

func TestOrderedListWithContinuation(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "1. first\n   more\n2. second\n\nx\n")
	wantBlocks(t, got,
		Block{Kind: KindList, Raw: "1. first\n   more\n2. second\n"},
		Block{Kind: KindParagraph, Raw: "x\n"},
	)
}

func TestListMarkerInterruptsParagraph(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "intro\n- a\n- b\n")
	wantBlocks(t, got,
		Block{Kind: KindParagraph, Raw: "intro\n"},
		Block{Kind: KindList, Raw: "- a\n- b\n"},
	)
}

func TestNestedFenceInsideList(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "- item\n  ```\n\n  code\n  ```\n- next\n\nend\n")
	wantBlocks(t, got,
		Block{Kind: KindList, Raw: "- item\n  ```\n\n  code\n  ```\n- next\n"},
		Block{Kind: KindParagraph, Raw: "end\n"},
	)
}

func TestBlockquote(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "> a\n> b\nplain\n")
	wantBlocks(t, got,
		Block{Kind: KindBlockQuote, Raw: "> a\n> b\n"},
		Block{Kind: KindParagraph, Raw: "plain\n"},
	)
}

func TestTableConfirmedByDelimiterRow(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "| A | B |\n|---|---|\n| 1 | 2 |\n\nAfter\n")
	wantBlocks(t, got,
		Block{Kind: KindTable, Raw: "| A | B |\n|---|---|\n| 1 | 2 |\n"},
		Block{Kind: KindParagraph, Raw: "After\n"},
	)
}

func TestTableColumnMismatchStaysParagraph(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "| A | B |\n|---|\n\n")
	wantBlocks(t, got, Block{Kind: KindParagraph, Raw: "| A | B |\n|---|\n"})
}

func TestTableHeaderSplitsFromLeadingProse(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "intro line\na | b\n--- | ---\n\n")
	wantBlocks(t, got,
		Block{Kind: KindParagraph, Raw: "intro line\n"},
		Block{Kind: KindTable, Raw: "a | b\n--- | ---\n"},
	)
}

func TestMathBlock(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "$$\nE = mc^2\n$$\nafter\n")
	wantBlocks(t, got,
		Block{Kind: KindMathBlock, Raw: "$$\nE = mc^2\n$$\n"},
		Block{Kind: KindParagraph, Raw: "after\n"},
	)
}

func TestMathSingleLine(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("$$x+y$$\n"))
	wantBlocks(t, u.Committed, Block{Kind: KindMathBlock, Raw: "$$x+y$$\n"})
}

func TestPendingIDStableAcrossAppends(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("hello"))
	if u.Pending == nil {
		t.Fatal("no pending block")
	}
	id := u.Pending.ID

	u = s.Append([]byte(" world"))
	if u.Pending == nil || u.Pending.ID != id {
		t.Fatalf("pending id changed: %+v, want %d", u.Pending, id)
	}
	if u.Pending.Raw != "hello world" {
		t.Errorf("pending raw = %q", u.Pending.Raw)
	}

	u = s.Append([]byte("\n\n"))
	if len(u.Committed) != 1 || u.Committed[0].ID != id {
		t.Fatalf("committed = %+v, want id %d", u.Committed, id)
	}
	if u.Committed[0].Raw != "hello world\n" {
		t.Errorf("raw = %q", u.Committed[0].Raw)
	}
}

func TestEmptyAppendReturnsPendingSnapshot(t *testing.T) {
	s := mustStream(t)
	s.Append([]byte("partial"))
	u := s.Append(nil)
	if len(u.Committed) != 0 {
		t.Errorf("unexpected commits: %+v", u.Committed)
	}
	if u.Pending == nil || u.Pending.Raw != "partial" {
		t.Errorf("pending = %+v", u.Pending)
	}
}

func TestMonotonicIDs(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "# a\n\ntext\n\n- l\n\n> q\n")
	var last BlockID
	for i, b := range got {
		if b.ID <= last {
			t.Errorf("block %d: id %d not greater than %d", i, b.ID, last)
		}
		last = b.ID
	}
}

func TestSnapshot(t *testing.T) {
	s := mustStream(t)
	s.Append([]byte("# h\n\npending text"))
	snap := s.Snapshot()
	if len(snap.Committed) != 1 || snap.Committed[0].Kind != KindHeading {
		t.Fatalf("committed = %+v", snap.Committed)
	}
	if snap.Pending == nil || snap.Pending.Raw != "pending text" {
		t.Fatalf("pending = %+v", snap.Pending)
	}
	if snap.Pending.Status != StatusPending {
		t.Errorf("status = %v", snap.Pending.Status)
	}
}

func TestFinalizeKeepsStreamUsable(t *testing.T) {
	s := mustStream(t)
	u := s.Finalize()
	if len(u.Committed) != 0 || u.Pending != nil {
		t.Fatalf("empty finalize produced %+v", u)
	}

	got := feed(t, s, "next doc\n\n")
	wantBlocks(t, got, Block{Kind: KindParagraph, Raw: "next doc\n"})
}

func TestFinalizeWithoutTrailingNewline(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "no newline")
	wantBlocks(t, got, Block{Kind: KindParagraph, Raw: "no newline"})
}

func TestReferenceDefinitionInvalidation(t *testing.T) {
	s := mustStream(t, WithReferenceDefinitions(RefDefInvalidate))

	u := s.Append([]byte("See [ref].\n\n"))
	if len(u.Committed) != 1 {
		t.Fatalf("got %d commits, want 1", len(u.Committed))
	}
	used := u.Committed[0].ID

	u = s.Append([]byte("[ref]: https://example.com\n\nNext\n"))
	if len(u.Committed) != 1 {
		t.Fatalf("got %d commits, want 1: %+v", len(u.Committed), u.Committed)
	}
	if len(u.Invalidated) != 1 || u.Invalidated[0] != used {
		t.Errorf("invalidated = %v, want [%d]", u.Invalidated, used)
	}
}

func TestFootnoteSingleBlockMidStream(t *testing.T) {
	s := mustStream(t)

	u := s.Append([]byte("Hello\n\n"))
	if len(u.Committed) != 1 {
		t.Fatalf("got %d commits, want 1", len(u.Committed))
	}
	firstID := u.Committed[0].ID

	u = s.Append([]byte("[^1]: note\n"))
	if !u.Reset {
		t.Fatal("update should carry reset")
	}
	if len(u.Committed) != 0 {
		t.Errorf("committed should be empty, got %+v", u.Committed)
	}
	if u.Pending == nil {
		t.Fatal("no pending block after collapse")
	}
	if u.Pending.ID <= firstID {
		t.Errorf("pending id %d should exceed %d", u.Pending.ID, firstID)
	}
	if u.Pending.Raw != "Hello\n\n[^1]: note\n" {
		t.Errorf("pending raw = %q", u.Pending.Raw)
	}

	// Everything afterwards keeps extending the one block.
	u = s.Append([]byte("\nmore text\n"))
	if len(u.Committed) != 0 || u.Reset {
		t.Errorf("unexpected update after collapse: %+v", u)
	}
	if u.Pending == nil || u.Pending.Raw != "Hello\n\n[^1]: note\n\nmore text\n" {
		t.Errorf("pending = %+v", u.Pending)
	}
}

func TestFootnoteReferenceAloneTriggersCollapse(t *testing.T) {
	s := mustStream(t)
	u := s.Append([]byte("See note[^a] here\n"))
	if !u.Reset {
		t.Fatal("reference should trigger single-block collapse")
	}
}

func TestFootnoteSyntaxInsideFenceIgnored(t *testing.T) {
	s := mustStream(t)
	got := feed(t, s, "```\n[^1]: not a footnote\n```\n")
	wantBlocks(t, got, Block{Kind: KindCodeFence, Raw: "```\n[^1]: not a footnote\n```\n"})
}

func TestFootnoteInvalidateModeKeepsSplitting(t *testing.T) {
	s := mustStream(t, WithFootnoteMode(FootnoteInvalidate))

	u := s.Append([]byte("See note[^a].\n\n"))
	if len(u.Committed) != 1 {
		t.Fatalf("got %d commits, want 1", len(u.Committed))
	}
	used := u.Committed[0].ID

	u = s.Append([]byte("[^a]: the note\n\nNext\n"))
	var def *Block
	for i := range u.Committed {
		if u.Committed[i].Kind == KindFootnoteDefinition {
			def = &u.Committed[i]
		}
	}
	if def == nil {
		t.Fatalf("no footnote definition committed: %+v", u.Committed)
	}
	if def.Raw != "[^a]: the note\n" {
		t.Errorf("definition raw = %q", def.Raw)
	}
	if len(u.Invalidated) != 1 || u.Invalidated[0] != used {
		t.Errorf("invalidated = %v, want [%d]", u.Invalidated, used)
	}
}

func TestFootnoteDefinitionContinuation(t *testing.T) {
	s := mustStream(t, WithFootnoteMode(FootnoteInvalidate))
	got := feed(t, s, "[^a]: first\n    continued\n\nplain\n")
	wantBlocks(t, got,
		Block{Kind: KindFootnoteDefinition, Raw: "[^a]: first\n    continued\n"},
		Block{Kind: KindParagraph, Raw: "plain\n"},
	)
}

func TestConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"negative tail window", []Option{WithTailWindow(-1)}},
		{"zero tail window", []Option{WithTailWindow(0)}},
		{"negative max buffer", []Option{WithMaxBuffer(-5)}},
		{"empty placeholder", []Option{WithLinkPlaceholder("")}},
		{"bad refdef mode", []Option{WithReferenceDefinitions(RefDefMode(99))}},
		{"bad footnote mode", []Option{WithFootnoteMode(FootnoteMode(99))}},
		{"bad image behavior", []Option{WithImageBehavior(ImageBehavior(99))}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts...); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestMaxBufferTrimsCommittedHead(t *testing.T) {
	s := mustStream(t, WithMaxBuffer(64))
	var committed []Block
	for i := 0; i < 50; i++ {
		u := s.Append([]byte("paragraph number with some text\n\n"))
		committed = append(committed, u.Committed...)
	}
	if len(s.lb.buf) > 128 {
		t.Errorf("buffer grew to %d bytes despite cap", len(s.lb.buf))
	}
	if len(committed) != 50 {
		t.Fatalf("got %d blocks, want 50", len(committed))
	}
	for _, b := range committed {
		if b.Raw != "paragraph number with some text\n" {
			t.Errorf("raw = %q", b.Raw)
			break
		}
	}
}

func TestDirectivesContainerSpansOneBlock(t *testing.T) {
	s := mustStream(t, WithBoundaryPlugin(Directives()))
	got := feed(t, s, ":::warning\nline one\n\nline two\n:::\nafter\n")
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2: %+v", len(got), got)
	}
	if got[0].Raw != ":::warning\nline one\n\nline two\n:::\n" {
		t.Errorf("container raw = %q", got[0].Raw)
	}
	if got[1].Raw != "after\n" {
		t.Errorf("after raw = %q", got[1].Raw)
	}
}

func TestDocumentStateAppliesReset(t *testing.T) {
	s := mustStream(t)
	var doc DocumentState

	doc.Apply(s.Append([]byte("one\n\ntwo\n\n")))
	if len(doc.Committed()) != 2 {
		t.Fatalf("committed = %+v", doc.Committed())
	}

	doc.Apply(s.Append([]byte("[^n]: note\n")))
	if len(doc.Committed()) != 0 {
		t.Errorf("reset should clear committed, got %+v", doc.Committed())
	}
	if doc.Pending() == nil {
		t.Fatal("pending missing after reset")
	}
	if doc.Text() != "one\n\ntwo\n\n[^n]: note\n" {
		t.Errorf("text = %q", doc.Text())
	}
}
