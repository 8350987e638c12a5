// Package mdstream splits a chunked Markdown stream into a stable
// sequence of committed blocks plus at most one mutable pending block.
// It is built for LLM token streams feeding incremental UIs: committed
// blocks never change, so a consumer renders each one exactly once and
// only ever repaints the pending tail. The splitter is chunking
// invariant -- the same input yields the same blocks no matter how it
// was sliced into Append calls -- and does work proportional to the
// chunk plus a bounded tail window, independent of document size.
package mdstream

import "strings"

// state is the boundary detector's position in the current block.
type state int

const (
	stateReady state = iota // between blocks
	stateParagraph
	stateFence
	stateMath
	stateHTML
	stateHTMLComment
	stateTable
	stateList
	stateQuote
	stateFootnote
	stateContainer
)

// pendingBlock is the single open block.
type pendingBlock struct {
	id    BlockID
	kind  BlockKind
	start int // absolute offset of the block's first byte
	label string
}

// Stream is an incremental Markdown block splitter. It is not safe for
// concurrent use; ownership is exclusive for the duration of each call.
type Stream struct {
	opts options

	lb     *lineBuffer
	ctx    Context
	state  state
	resume state // state to restore when a fence nested in a list closes

	pending   *pendingBlock
	lastID    BlockID
	committed []Block

	refs  *refTracker // reference definitions, nil when off
	notes *refTracker // footnote definitions, nil unless FootnoteInvalidate

	single   bool // single-block mode engaged
	docStart int  // absolute offset where the current document began

	builtins []Transformer

	// paragraph bookkeeping for table confirmation
	paraLastStart   int
	paraLastContent string

	// first held-back blank inside a footnote definition, -1 when none
	fnBlankStart int
}

// New creates a Stream. Option values are validated here; Append and
// Finalize never fail.
func New(opts ...Option) (*Stream, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	s := &Stream{
		opts:         o,
		lb:           newLineBuffer(),
		fnBlankStart: -1,
	}
	s.builtins = builtinTransformers(o)
	if o.refDefs == RefDefInvalidate {
		s.refs = newRefTracker()
	}
	if o.footnotes == FootnoteInvalidate {
		s.notes = newRefTracker()
	}
	return s, nil
}

// Append feeds a chunk and reports any newly committed blocks plus a
// snapshot of the current pending block. An empty chunk is a cheap way
// to re-read the pending snapshot.
func (s *Stream) Append(chunk []byte) Update {
	var u Update
	s.lb.append(chunk)
	for {
		start, end, ok := s.lb.nextLine()
		if !ok {
			break
		}
		s.processLine(start, end, &u)
	}
	s.adoptPartial()
	s.trimBuffer()
	u.Pending = s.buildPending()
	return u
}

// Finalize declares end of stream. The open pending block, if any, is
// committed as-is, unclosed fences included. The stream then starts a
// fresh document: later Appends keep working and block ids keep
// increasing.
func (s *Stream) Finalize() Update {
	var u Update
	s.lb.flushCR()
	for {
		start, end, ok := s.lb.nextLine()
		if !ok {
			break
		}
		s.processLine(start, end, &u)
	}
	s.adoptPartial()
	if s.single {
		if s.pending == nil {
			s.pending = &pendingBlock{id: s.newID(), kind: KindUnknown, start: s.docStart}
		}
		s.forceCommitTo(s.lb.end(), &u)
	} else if s.pending != nil {
		s.forceCommitTo(s.lb.end(), &u)
	}
	s.single = false
	s.state = stateReady
	s.resume = stateReady
	s.ctx.resetAll()
	s.lb.reset()
	s.docStart = s.lb.base
	if s.refs != nil {
		s.refs.reset()
	}
	if s.notes != nil {
		s.notes.reset()
	}
	return u
}

// Snapshot returns a read-only view of all blocks so far.
func (s *Stream) Snapshot() Snapshot {
	out := make([]Block, len(s.committed))
	copy(out, s.committed)
	return Snapshot{Committed: out, Pending: s.buildPending()}
}

func (s *Stream) newID() BlockID {
	s.lastID++
	return s.lastID
}

// processLine runs one complete line (start..end, end past its newline)
// through the classifier, context tracker, and boundary detector.
func (s *Stream) processLine(start, end int, u *Update) {
	content := strings.TrimSuffix(s.lb.slice(start, end), "\n")

	for _, p := range s.opts.plugins {
		p.ObserveLine(content, &s.ctx)
	}

	if s.single {
		return
	}

	if s.opts.footnotes == FootnoteSingleBlock && !s.ctx.InFence() && containsFootnoteRef(content) {
		s.collapseToSingle(u)
		return
	}

	// A plugin veto keeps the pending block open no matter what the line
	// would normally do. Container state has its own handler below.
	if s.pending != nil && s.state != stateContainer && s.vetoed(content) {
		return
	}

	switch s.state {
	case stateReady:
		s.handleReady(start, end, content, u)
	case stateParagraph:
		s.handleParagraph(start, end, content, u)
	case stateFence:
		s.handleFence(end, content, u)
	case stateMath:
		s.handleMath(end, content, u)
	case stateHTML:
		s.handleHTML(end, content, u)
	case stateHTMLComment:
		s.handleHTMLComment(end, content, u)
	case stateTable:
		s.handleTable(start, end, content, u)
	case stateList:
		s.handleList(start, end, content, u)
	case stateQuote:
		s.handleQuote(start, end, content, u)
	case stateFootnote:
		s.handleFootnote(start, end, content, u)
	case stateContainer:
		s.handleContainer(end, u)
	}
}

func (s *Stream) vetoed(content string) bool {
	for _, p := range s.opts.plugins {
		if p.VetoCommit(content, &s.ctx) {
			return true
		}
	}
	return false
}

// ensurePending returns the open block, creating one starting at the
// given offset. A block born from a trailing partial line is reused so
// its id survives the line completing.
func (s *Stream) ensurePending(start int) *pendingBlock {
	if s.pending == nil {
		s.pending = &pendingBlock{id: s.newID(), start: start}
	}
	return s.pending
}

func (s *Stream) handleReady(start, end int, content string, u *Update) {
	if s.ctx.ContainerDepth() > 0 {
		s.ensurePending(start)
		s.state = stateContainer
		return
	}

	if isBlank(content) {
		return
	}

	p := s.ensurePending(start)
	info := classify(content)

	switch info.class {
	case classFenceOpen:
		p.kind = KindCodeFence
		s.ctx.fence = &fenceState{char: info.fenceChar, length: info.fenceLen, indent: info.indent}
		s.state = stateFence

	case classMathFence:
		p.kind = KindMathBlock
		if mathDelimCount(content) >= 2 {
			s.forceCommitTo(end, u)
			return
		}
		s.ctx.mathOpen = true
		s.state = stateMath

	case classATXHeading:
		p.kind = KindHeading
		s.forceCommitTo(end, u)

	case classThematicBreak:
		p.kind = KindThematicBreak
		s.forceCommitTo(end, u)

	case classHTMLCommentOpen:
		p.kind = KindHTMLBlock
		if strings.Contains(content, "-->") {
			s.forceCommitTo(end, u)
			return
		}
		s.ctx.htmlComment = true
		s.state = stateHTMLComment

	case classHTMLOpen:
		p.kind = KindHTMLBlock
		s.ctx.applyHTMLTags(info.tags)
		if s.ctx.InHTML() {
			s.state = stateHTML
		} else {
			s.forceCommitTo(end, u)
		}

	case classRefDef:
		// Reference definitions are single-line; committing right away
		// lets the invalidation signal fire as early as possible.
		p.kind = KindParagraph
		p.label = info.label
		s.forceCommitTo(end, u)

	case classFootnoteDef:
		// Only reachable in FootnoteInvalidate mode; SingleBlock mode
		// collapsed before dispatch.
		p.kind = KindFootnoteDefinition
		p.label = info.label
		s.ctx.footnoteOpen = true
		s.state = stateFootnote

	case classListMarker:
		p.kind = KindList
		s.ctx.listActive = true
		s.ctx.listIndent = info.indent
		s.ctx.lastMarkerIndent = info.indent
		s.state = stateList

	case classBlockQuote:
		p.kind = KindBlockQuote
		s.ctx.quoteDepth = info.quoteDepth
		s.state = stateQuote

	default:
		p.kind = KindParagraph
		if strings.HasPrefix(strings.TrimLeft(content, " \t"), "|") {
			// Deterministic pipe-first rows are almost always a table
			// header mid-stream; the delimiter row confirms or refutes.
			p.kind = KindTable
		}
		s.state = stateParagraph
		s.paraLastStart = start
		s.paraLastContent = content
	}
}

func (s *Stream) handleParagraph(start, end int, content string, u *Update) {
	if isBlank(content) {
		s.forceCommitAt(start, u)
		return
	}

	// Setext underline wins over thematic break: "---" directly under a
	// paragraph line promotes it to a heading.
	if isSetextUnderline(content) {
		s.pending.kind = KindHeading
		s.forceCommitTo(end, u)
		return
	}

	info := classify(content)
	switch info.class {
	case classTableDelimiter:
		if isTableLine(s.paraLastContent) &&
			len(splitTableRow(strings.TrimSpace(s.paraLastContent))) == len(splitTableRow(strings.TrimSpace(content))) {
			if s.paraLastStart > s.pending.start {
				// Earlier paragraph lines are not part of the table;
				// split them off and restart the block at the header.
				header := s.paraLastStart
				s.forceCommitAt(header, u)
				s.pending = &pendingBlock{id: s.newID(), kind: KindTable, start: header}
			}
			s.pending.kind = KindTable
			s.state = stateTable
			return
		}
		// Column mismatch: plain paragraph continuation.

	case classFenceOpen, classATXHeading, classThematicBreak, classMathFence,
		classHTMLOpen, classHTMLCommentOpen, classBlockQuote, classFootnoteDef:
		s.forceCommitAt(start, u)
		s.handleReady(start, end, content, u)
		return

	case classListMarker:
		// Only a marker at column 0 interrupts a paragraph; indented
		// markers in prose stay prose.
		if info.indent == 0 {
			s.forceCommitAt(start, u)
			s.handleReady(start, end, content, u)
			return
		}

	case classRefDef:
		// A reference definition cannot interrupt a paragraph.
	}

	s.paraLastStart = start
	s.paraLastContent = content
}

func (s *Stream) handleFence(end int, content string, u *Update) {
	f := s.ctx.fence
	if f == nil || !fenceCloses(content, f.char, f.length, f.indent) {
		return
	}
	s.ctx.fence = nil
	if s.resume == stateList {
		s.state = stateList
		s.resume = stateReady
		return
	}
	s.forceCommitTo(end, u)
}

func (s *Stream) handleMath(end int, content string, u *Update) {
	if mathDelimCount(content) == 0 {
		return
	}
	s.ctx.mathOpen = false
	s.forceCommitTo(end, u)
}

func (s *Stream) handleHTML(end int, content string, u *Update) {
	s.ctx.applyHTMLTags(scanHTMLTags(content))
	if !s.ctx.InHTML() {
		// Closure without a trailing blank line: the block ends at the
		// line that empties the stack, so "After" in "</div>\nAfter"
		// starts its own block.
		s.forceCommitTo(end, u)
	}
}

func (s *Stream) handleHTMLComment(end int, content string, u *Update) {
	if !strings.Contains(content, "-->") {
		return
	}
	s.ctx.htmlComment = false
	s.forceCommitTo(end, u)
}

func (s *Stream) handleTable(start, end int, content string, u *Update) {
	if isTableLine(content) {
		return
	}
	s.forceCommitAt(start, u)
	s.handleReady(start, end, content, u)
}

func (s *Stream) handleList(start, end int, content string, u *Update) {
	if isBlank(content) {
		s.forceCommitAt(start, u)
		return
	}

	indent := countIndent(content)
	trimmed := strings.TrimLeft(content, " \t")

	// A marker with no content yet ("-", "3.") stays open: the rest of
	// the item may still be in flight across a chunk boundary.
	if splitListMarkerPrefix(trimmed) {
		s.ctx.lastMarkerIndent = indent
		return
	}

	if _, _, ok := listMarker(trimmed); ok {
		if indent < s.ctx.listIndent {
			s.ctx.listIndent = indent
		}
		s.ctx.lastMarkerIndent = indent
		return
	}

	if indent > s.ctx.listIndent {
		// Indented content continues the current item. A nested fence
		// flips into fence handling and resumes the list on close so
		// blank lines inside it cannot end the list.
		if info := classify(content); info.class == classFenceOpen {
			s.ctx.fence = &fenceState{char: info.fenceChar, length: info.fenceLen, indent: info.indent}
			s.resume = stateList
			s.state = stateFence
		}
		return
	}

	s.forceCommitAt(start, u)
	s.handleReady(start, end, content, u)
}

func (s *Stream) handleQuote(start, end int, content string, u *Update) {
	if isBlank(content) {
		s.forceCommitAt(start, u)
		return
	}
	trimmed := strings.TrimLeft(content, " \t")
	if strings.HasPrefix(trimmed, ">") {
		s.ctx.quoteDepth = quoteDepth(trimmed)
		return
	}
	s.forceCommitAt(start, u)
	s.handleReady(start, end, content, u)
}

func (s *Stream) handleFootnote(start, end int, content string, u *Update) {
	if isBlank(content) {
		if s.fnBlankStart < 0 {
			s.fnBlankStart = start
		}
		return
	}

	cut := start
	if s.fnBlankStart >= 0 {
		cut = s.fnBlankStart
	}

	indent := countIndent(content)
	if info := classify(content); info.class == classFootnoteDef {
		s.forceCommitAt(cut, u)
		s.handleReady(start, end, content, u)
		return
	}
	if indent >= 4 {
		// Continuation; any held blank line belongs to the definition.
		s.fnBlankStart = -1
		return
	}
	s.forceCommitAt(cut, u)
	s.handleReady(start, end, content, u)
}

func (s *Stream) handleContainer(end int, u *Update) {
	if s.ctx.ContainerDepth() == 0 {
		// The observing plugin popped the last frame on this line; the
		// container block ends here, closing marker included.
		s.forceCommitTo(end, u)
	}
}

// forceCommitAt commits the pending block with its raw ending just
// before the absolute offset cut (the current line is excluded).
func (s *Stream) forceCommitAt(cut int, u *Update) {
	s.commitPending(cut, u)
}

// forceCommitTo commits the pending block including bytes up to end.
func (s *Stream) forceCommitTo(end int, u *Update) {
	s.commitPending(end, u)
}

func (s *Stream) commitPending(end int, u *Update) {
	p := s.pending
	if p == nil {
		return
	}
	kind := p.kind
	if kind == KindTable && s.state != stateTable {
		// A pipe-first hint that no delimiter row ever confirmed.
		kind = KindParagraph
	}
	b := Block{ID: p.id, Status: StatusCommitted, Kind: kind, Raw: s.lb.slice(p.start, end)}
	u.Committed = append(u.Committed, b)
	s.committed = append(s.committed, b)

	if s.refs != nil {
		if p.label != "" && p.kind == KindParagraph {
			mergeInvalidated(u, s.refs.define(p.label, b.ID))
		} else {
			s.refs.record(b.ID, extractRefLabels(b.Raw))
		}
	}
	if s.notes != nil {
		if b.Kind == KindFootnoteDefinition {
			mergeInvalidated(u, s.notes.define(p.label, b.ID))
		} else {
			s.notes.record(b.ID, extractFootnoteLabels(b.Raw))
		}
	}

	s.pending = nil
	s.state = stateReady
	s.resume = stateReady
	s.fnBlankStart = -1
	s.ctx.resetBlock()
}

// mergeInvalidated appends ids keeping first-occurrence order without
// duplicates. Invalidation lists are short; a linear scan is fine.
func mergeInvalidated(u *Update, ids []BlockID) {
	for _, id := range ids {
		dup := false
		for _, have := range u.Invalidated {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			u.Invalidated = append(u.Invalidated, id)
		}
	}
}

// collapseToSingle switches to single-block mode: every block committed
// so far is withdrawn via reset and the whole document becomes one
// pending block under a fresh id.
func (s *Stream) collapseToSingle(u *Update) {
	s.single = true
	u.Reset = true
	u.Committed = nil
	u.Invalidated = nil
	s.committed = s.committed[:0]
	start := s.docStart
	if start < s.lb.base {
		// The head was trimmed under a buffer cap; rebuild from what is
		// still held.
		start = s.lb.base
	}
	s.pending = &pendingBlock{id: s.newID(), kind: KindUnknown, start: start}
	s.state = stateReady
	s.resume = stateReady
	s.ctx.resetAll()
	if s.refs != nil {
		s.refs.reset()
	}
	if s.notes != nil {
		s.notes.reset()
	}
}

// adoptPartial births a pending block from a non-blank trailing partial
// line, so transformers can produce a display view before the line
// completes.
func (s *Stream) adoptPartial() {
	if s.single {
		return
	}
	if s.pending != nil {
		if s.state == stateReady {
			// Still on the block's first, incomplete line; the hint can
			// sharpen as more of it arrives ("``" -> "```go").
			s.pending.kind = guessKind(s.lb.partial())
		}
		return
	}
	partial := s.lb.partial()
	if isBlank(partial) {
		return
	}
	s.pending = &pendingBlock{
		id:    s.newID(),
		kind:  guessKind(partial),
		start: s.lb.scanPos,
	}
}

// guessKind gives a partial first line a best-effort kind; it may be
// revised once the line completes.
func guessKind(partial string) BlockKind {
	info := classify(partial)
	switch info.class {
	case classFenceOpen:
		return KindCodeFence
	case classATXHeading:
		return KindHeading
	case classThematicBreak:
		return KindThematicBreak
	case classMathFence:
		return KindMathBlock
	case classListMarker:
		return KindList
	case classBlockQuote:
		return KindBlockQuote
	case classHTMLOpen, classHTMLCommentOpen:
		return KindHTMLBlock
	case classFootnoteDef:
		return KindFootnoteDefinition
	}
	if strings.HasPrefix(strings.TrimLeft(partial, " \t"), "|") {
		return KindTable
	}
	return KindParagraph
}

// buildPending snapshots the open block, running the transformer
// pipeline over its tail window to produce the display view.
func (s *Stream) buildPending() *Block {
	if s.single {
		start := s.docStart
		if start < s.lb.base {
			start = s.lb.base
		}
		if s.pending == nil {
			return nil
		}
		s.pending.start = start
	}
	p := s.pending
	if p == nil {
		return nil
	}
	raw := s.lb.tail(p.start)
	if raw == "" {
		return nil
	}
	b := Block{ID: p.id, Status: StatusPending, Kind: p.kind, Raw: raw}
	if display, changed := s.transformTail(raw, p.kind); changed && display != raw {
		b.Display = display
		b.HasDisplay = true
	}
	return &b
}

// trimBuffer enforces the optional memory cap by dropping the committed
// head of the buffer. Committed blocks own their raw strings, so this
// never invalidates anything already emitted.
func (s *Stream) trimBuffer() {
	if s.opts.maxBuffer <= 0 || len(s.lb.buf) <= s.opts.maxBuffer {
		return
	}
	keep := s.lb.scanPos
	if s.pending != nil && s.pending.start < keep {
		keep = s.pending.start
	}
	s.lb.trim(keep)
}
