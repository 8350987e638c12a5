package mdstream

import "strings"

// TailInfo gives a transformer the context it needs to rewrite the
// pending tail safely.
type TailInfo struct {
	// Kind is the pending block's current kind hint.
	Kind BlockKind
	// InFence is true while the tail is inside fenced code; transformers
	// must leave fenced content alone.
	InFence bool
	// MathOpen is true while a $$ block is open at the last complete
	// line.
	MathOpen bool
	// Windowed is true when the tail is a bounded suffix of the pending
	// block rather than the whole thing.
	Windowed bool
}

// Transformer rewrites the tail window of the pending block to produce a
// display view. It returns the replacement and true, or anything and
// false to leave the tail unchanged. Transformers never see or touch
// committed text, and their output never feeds back into Raw.
type Transformer func(tail string, info TailInfo) (string, bool)

// builtinTransformers assembles the standard pipeline in its fixed
// order: inline termination, link placeholder, image handling, math
// balancing. User transformers run after these.
func builtinTransformers(o options) []Transformer {
	return []Transformer{
		terminateInline,
		completeLink(o.linkPlaceholder),
		handleImage(o.imageBehavior, o.linkPlaceholder),
		balanceMath,
	}
}

// transformTail runs the pipeline over the bounded tail window and
// splices the result onto the untouched prefix. A transformer that
// panics is skipped; the pipeline never corrupts Raw.
func (s *Stream) transformTail(raw string, kind BlockKind) (string, bool) {
	prefix, tail := splitTailWindow(raw, s.opts.tailWindow)
	info := TailInfo{
		Kind:     kind,
		InFence:  kind == KindCodeFence && s.ctx.InFence(),
		MathOpen: s.ctx.InMath(),
		Windowed: prefix != "",
	}
	changed := false
	run := func(t Transformer) {
		defer func() { recover() }()
		if out, ok := t(tail, info); ok {
			tail = out
			changed = true
		}
	}
	for _, t := range s.builtins {
		run(t)
	}
	for _, t := range s.opts.transformers {
		run(t)
	}
	if !changed {
		return raw, false
	}
	return prefix + tail, true
}

// splitTailWindow cuts raw so the tail is at most window bytes, nudging
// the cut forward to a rune boundary.
func splitTailWindow(raw string, window int) (prefix, tail string) {
	if len(raw) <= window {
		return "", raw
	}
	cut := len(raw) - window
	for cut < len(raw) && raw[cut]&0xC0 == 0x80 {
		cut++
	}
	return raw[:cut], raw[cut:]
}

// delimRun is one unmatched opening delimiter run found in the tail.
type delimRun struct {
	marker string
}

// terminateInline closes unterminated inline syntax at the tail so a
// downstream renderer never sees half-open emphasis, code spans, or
// strikethrough. Closers are appended in order: the open code span run
// first, then emphasis and strikethrough in reverse open order.
func terminateInline(tail string, info TailInfo) (string, bool) {
	if info.InFence || info.Kind == KindCodeFence || info.Kind == KindMathBlock {
		return "", false
	}

	scan := tail
	// A trailing marker-only line ("  - ", "  = ", a bare "* ") is list
	// or setext syntax still being typed, not emphasis; keep it out of
	// the delimiter scan.
	if idx := strings.LastIndexByte(strings.TrimRight(scan, " \t"), '\n'); idx >= 0 {
		last := scan[idx+1:]
		if isMarkerOnlyLine(last) {
			scan = scan[:idx+1]
		}
	} else if isMarkerOnlyLine(scan) {
		return "", false
	}

	openCode, stack := scanInlineDelims(scan)

	if openCode == 0 && len(stack) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(tail)
	if openCode > 0 {
		b.WriteString(strings.Repeat("`", openCode))
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString(stack[i].marker)
	}
	return b.String(), true
}

// scanInlineDelims walks the tail tracking unmatched inline delimiters.
// It returns the width of an unclosed code span run (0 when none) and
// the stack of open emphasis/strikethrough runs in open order. Content
// after an unclosed code span opener is literal and scanned no further.
func scanInlineDelims(s string) (openCode int, stack []delimRun) {
	i := 0
	for i < len(s) {
		c := s[i]

		if c == '\\' && i+1 < len(s) {
			i += 2
			continue
		}

		if c == '`' {
			run := runLen(s, i, '`')
			closer := strings.Repeat("`", run)
			rest := s[i+run:]
			at := strings.Index(rest, closer)
			// The closing run must be exactly the same length.
			for at >= 0 && runLen(rest, at, '`') != run {
				next := strings.Index(rest[at+runLen(rest, at, '`'):], closer)
				if next < 0 {
					at = -1
					break
				}
				at += runLen(rest, at, '`') + next
			}
			if at < 0 {
				return run, stack
			}
			i += run + at + run
			continue
		}

		if c == '*' || c == '_' {
			run := runLen(s, i, c)
			if run > 3 {
				i += run
				continue
			}
			marker := s[i : i+run]
			prevSolid := i > 0 && s[i-1] != ' ' && s[i-1] != '\t' && s[i-1] != '\n'
			nextSolid := i+run < len(s) && s[i+run] != ' ' && s[i+run] != '\t' && s[i+run] != '\n'
			switch {
			case prevSolid && len(stack) > 0 && stack[len(stack)-1].marker == marker:
				stack = stack[:len(stack)-1]
			case nextSolid:
				stack = append(stack, delimRun{marker: marker})
			}
			i += run
			continue
		}

		if c == '~' && i+1 < len(s) && s[i+1] == '~' {
			if n := len(stack); n > 0 && stack[n-1].marker == "~~" {
				stack = stack[:n-1]
			} else {
				stack = append(stack, delimRun{marker: "~~"})
			}
			i += 2
			continue
		}

		i++
	}
	return 0, stack
}

func runLen(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// isMarkerOnlyLine matches a line that is just a list marker or setext
// underline fragment with optional surrounding spaces.
func isMarkerOnlyLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if len(trimmed) == 1 {
		switch trimmed[0] {
		case '-', '=', '+', '*':
			return true
		}
	}
	return splitListMarkerPrefix(trimmed)
}

// completeLink substitutes the placeholder URL into a trailing
// incomplete inline link: "[docs](" becomes "[docs](placeholder)".
func completeLink(placeholder string) Transformer {
	return func(tail string, info TailInfo) (string, bool) {
		if info.InFence || info.Kind == KindCodeFence {
			return "", false
		}
		open := strings.LastIndex(tail, "](")
		if open < 0 {
			return "", false
		}
		if strings.ContainsRune(tail[open+2:], ')') {
			return "", false
		}
		// Leave incomplete images to the image transformer.
		if bracket := strings.LastIndexByte(tail[:open+1], '['); bracket > 0 && tail[bracket-1] == '!' {
			return "", false
		}
		return tail[:open+2] + placeholder + ")", true
	}
}

// handleImage deals with a trailing incomplete image. Drop removes the
// whole image prefix from the display; Placeholder completes it like a
// link.
func handleImage(behavior ImageBehavior, placeholder string) Transformer {
	return func(tail string, info TailInfo) (string, bool) {
		if info.InFence || info.Kind == KindCodeFence {
			return "", false
		}
		bang := strings.LastIndex(tail, "![")
		if bang < 0 {
			return "", false
		}
		rest := tail[bang:]
		if open := strings.Index(rest, "]("); open >= 0 {
			if strings.ContainsRune(rest[open+2:], ')') {
				return "", false
			}
			if behavior == ImagePlaceholder {
				return tail[:bang+open+2] + placeholder + ")", true
			}
			return strings.TrimRight(tail[:bang], " "), true
		}
		if strings.ContainsRune(rest, ')') {
			return "", false
		}
		// "![alt" with no destination yet: nothing renderable either way.
		return strings.TrimRight(tail[:bang], " "), true
	}
}

// balanceMath appends a closing "$$" to the display when the pending
// block has an odd number of math delimiters.
func balanceMath(tail string, info TailInfo) (string, bool) {
	if info.InFence || info.Kind == KindCodeFence {
		return "", false
	}
	count := mathDelimCount(tail)
	if info.MathOpen && info.Windowed {
		// The opener is upstream of the window.
		count++
	}
	if count%2 == 0 {
		return "", false
	}
	if info.Kind == KindMathBlock && !strings.HasSuffix(tail, "\n") {
		return tail + "\n$$", true
	}
	return tail + "$$", true
}
