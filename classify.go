package mdstream

import (
	"strings"
)

// lineClass is the role a single physical line plays, judged without any
// surrounding context. The boundary detector combines it with the running
// context (an open fence wins over everything, and so on).
type lineClass int

const (
	classBlank lineClass = iota
	classATXHeading
	classThematicBreak
	classFenceOpen
	classSetextUnderline
	classMathFence
	classTableDelimiter
	classListMarker
	classBlockQuote
	classHTMLOpen
	classHTMLCommentOpen
	classFootnoteDef
	classRefDef
	classOther
)

// lineInfo carries the classification plus whatever the class needs.
type lineInfo struct {
	class  lineClass
	indent int

	// fence open
	fenceChar byte
	fenceLen  int
	fenceInfo string

	// list marker
	ordered     bool
	markerWidth int

	// blockquote
	quoteDepth int

	// html open
	tags []htmlTag

	// footnote / reference definition
	label  string
	target string

	// atx heading
	level int
}

// classify judges a line as the potential start of a fresh block. content
// must already have its trailing newline stripped.
func classify(content string) lineInfo {
	indent := countIndent(content)
	trimmed := strings.TrimLeft(content, " \t")

	if trimmed == "" {
		return lineInfo{class: classBlank}
	}

	if level, ok := atxLevel(trimmed); ok {
		return lineInfo{class: classATXHeading, indent: indent, level: level}
	}

	if ch, n, info, ok := parseFenceOpen(trimmed); ok {
		return lineInfo{class: classFenceOpen, indent: indent, fenceChar: ch, fenceLen: n, fenceInfo: info}
	}

	if indent <= 3 && strings.HasPrefix(trimmed, "$$") {
		return lineInfo{class: classMathFence, indent: indent}
	}

	if trimmed[0] == '>' {
		return lineInfo{class: classBlockQuote, indent: indent, quoteDepth: quoteDepth(trimmed)}
	}

	if label, ok := footnoteLabel(trimmed); ok && indent <= 3 {
		return lineInfo{class: classFootnoteDef, indent: indent, label: label}
	}

	if label, target, ok := refDefParts(trimmed); ok && indent <= 3 {
		return lineInfo{class: classRefDef, indent: indent, label: label, target: target}
	}

	// Thematic break before the list check: "- - -" is a break, "- x" is
	// a list item.
	if isThematicBreak(trimmed) {
		return lineInfo{class: classThematicBreak, indent: indent}
	}

	if ordered, width, ok := listMarker(trimmed); ok {
		return lineInfo{class: classListMarker, indent: indent, ordered: ordered, markerWidth: width}
	}

	if strings.HasPrefix(trimmed, "<!--") {
		return lineInfo{class: classHTMLCommentOpen, indent: indent}
	}

	if tags := scanHTMLTags(trimmed); len(tags) > 0 && trimmed[0] == '<' {
		return lineInfo{class: classHTMLOpen, indent: indent, tags: tags}
	}

	if isTableDelimiter(trimmed) {
		return lineInfo{class: classTableDelimiter, indent: indent}
	}

	return lineInfo{class: classOther, indent: indent}
}

func isBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

// countIndent counts leading whitespace, tabs as one column. Good enough
// for the comparisons the splitter makes; it never needs tab stops.
func countIndent(content string) int {
	n := 0
	for i := 0; i < len(content); i++ {
		if content[i] == ' ' || content[i] == '\t' {
			n++
		} else {
			break
		}
	}
	return n
}

// atxLevel reports the heading level of an ATX line: one to six '#'
// followed by a space, tab, or end of line.
func atxLevel(trimmed string) (int, bool) {
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0, false
	}
	if n == len(trimmed) || trimmed[n] == ' ' || trimmed[n] == '\t' {
		return n, true
	}
	return 0, false
}

// parseFenceOpen recognizes a code fence opener: three or more backticks
// or tildes. Backtick fences reject info strings containing a backtick.
func parseFenceOpen(trimmed string) (ch byte, n int, info string, ok bool) {
	if trimmed == "" {
		return 0, 0, "", false
	}
	ch = trimmed[0]
	if ch != '`' && ch != '~' {
		return 0, 0, "", false
	}
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0, "", false
	}
	info = strings.TrimSpace(trimmed[n:])
	if ch == '`' && strings.ContainsRune(info, '`') {
		return 0, 0, "", false
	}
	return ch, n, info, true
}

// fenceCloses reports whether a line closes the given open fence: the
// same character, a run at least as long, nothing but whitespace after.
func fenceCloses(content string, ch byte, openLen, openIndent int) bool {
	indent := countIndent(content)
	if indent > 3 && indent > openIndent+3 {
		return false
	}
	trimmed := strings.TrimLeft(content, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < openLen {
		return false
	}
	return strings.TrimSpace(trimmed[n:]) == ""
}

func isThematicBreak(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	ch := trimmed[0]
	if ch != '-' && ch != '*' && ch != '_' {
		return false
	}
	count := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case ch:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

// isSetextUnderline recognizes a run of '=' or '-' with nothing else on
// the line. Only meaningful directly after a paragraph line.
func isSetextUnderline(content string) bool {
	if countIndent(content) > 3 {
		return false
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	ch := trimmed[0]
	if ch != '=' && ch != '-' {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != ch {
			return false
		}
	}
	return true
}

// listMarker recognizes "-", "*", "+" or an ordered "12." / "3)" marker.
// width is the marker width including the following space.
func listMarker(trimmed string) (ordered bool, width int, ok bool) {
	if trimmed == "" {
		return false, 0, false
	}
	c := trimmed[0]
	if c == '-' || c == '*' || c == '+' {
		if len(trimmed) > 1 && (trimmed[1] == ' ' || trimmed[1] == '\t') {
			return false, 2, true
		}
		return false, 0, false
	}
	i := 0
	for i < len(trimmed) && i < 9 && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return false, 0, false
	}
	if trimmed[i] != '.' && trimmed[i] != ')' {
		return false, 0, false
	}
	if i+1 < len(trimmed) && trimmed[i+1] != ' ' && trimmed[i+1] != '\t' {
		return false, 0, false
	}
	return true, i + 2, true
}

// splitListMarkerPrefix reports whether trimmed is a marker with nothing
// after it yet ("-", "1.", "2)"). Such a line is held open so a marker
// split across a chunk boundary never commits the prior block early.
func splitListMarkerPrefix(trimmed string) bool {
	if trimmed == "-" || trimmed == "+" || trimmed == "*" {
		return true
	}
	i := 0
	for i < len(trimmed) && i < 9 && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return false
	}
	return (trimmed[i] == '.' || trimmed[i] == ')') && i+1 == len(trimmed)
}

func quoteDepth(trimmed string) int {
	depth := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '>':
			depth++
		case ' ', '\t':
		default:
			return depth
		}
	}
	return depth
}

// isTableDelimiter matches a GFM delimiter row: cells of :?-+:? separated
// by pipes, e.g. "|---|:--:|" or "--- | ---".
func isTableDelimiter(trimmed string) bool {
	if !strings.Contains(trimmed, "-") || !strings.Contains(trimmed, "|") {
		return false
	}
	cells := splitTableRow(trimmed)
	if len(cells) == 0 {
		return false
	}
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return false
		}
		body := strings.TrimSuffix(strings.TrimPrefix(cell, ":"), ":")
		if body == "" {
			return false
		}
		for i := 0; i < len(body); i++ {
			if body[i] != '-' {
				return false
			}
		}
	}
	return true
}

// splitTableRow splits a table row into cells, dropping the optional
// leading and trailing pipe. It does not honor escaped pipes; the
// delimiter row never contains them and header counting tolerates it.
func splitTableRow(trimmed string) []string {
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}
	return strings.Split(trimmed, "|")
}

func isTableLine(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && strings.Contains(trimmed, "|")
}

// footnoteLabel matches a footnote definition start: "[^label]:".
func footnoteLabel(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "[^") {
		return "", false
	}
	end := strings.Index(trimmed, "]:")
	if end < 2 {
		return "", false
	}
	label := trimmed[2:end]
	if label == "" || strings.ContainsAny(label, " \t[]") {
		return "", false
	}
	return label, true
}

// refDefParts matches a single-line reference definition "[label]: target".
// Labels starting with '^' belong to footnotes, not here.
func refDefParts(trimmed string) (label, target string, ok bool) {
	if len(trimmed) < 4 || trimmed[0] != '[' {
		return "", "", false
	}
	end := strings.Index(trimmed, "]:")
	if end < 1 {
		return "", "", false
	}
	label = trimmed[1:end]
	if label == "" || label[0] == '^' || strings.ContainsAny(label, "[]") {
		return "", "", false
	}
	target = strings.TrimSpace(trimmed[end+2:])
	if target == "" {
		return "", "", false
	}
	return label, target, true
}

// htmlTag is one tag occurrence found on a line.
type htmlTag struct {
	name        string
	closing     bool
	selfClosing bool
}

// voidElements never take a closing tag and so never open an HTML block
// context on their own.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// scanHTMLTags extracts recognizable tags from a line. Tag names are an
// ASCII letter followed by alphanumerics or '_' -- deliberately narrower
// than \w+ so chat prose like "a < b" or "<3" stays text. Closing tags
// accept trailing whitespace before '>'.
func scanHTMLTags(content string) []htmlTag {
	var tags []htmlTag
	for i := 0; i < len(content); i++ {
		if content[i] != '<' {
			continue
		}
		j := i + 1
		closing := false
		if j < len(content) && content[j] == '/' {
			closing = true
			j++
		}
		name, end := htmlTagName(content, j)
		if name == "" {
			continue
		}
		k := end
		if closing {
			for k < len(content) && (content[k] == ' ' || content[k] == '\t') {
				k++
			}
			if k >= len(content) || content[k] != '>' {
				continue
			}
			tags = append(tags, htmlTag{name: name, closing: true})
			i = k
			continue
		}
		// Opening tag: scan to '>' on this line, note a '/>' suffix.
		gt := strings.IndexByte(content[k:], '>')
		if gt < 0 {
			// Unterminated on this line; still treat as an opener so a
			// multi-line tag starts the block.
			tags = append(tags, htmlTag{name: name})
			break
		}
		self := gt > 0 && content[k+gt-1] == '/'
		tags = append(tags, htmlTag{name: name, selfClosing: self || voidElements[strings.ToLower(name)]})
		i = k + gt
	}
	return tags
}

func htmlTagName(content string, start int) (string, int) {
	i := start
	if i >= len(content) || !isASCIILetter(content[i]) {
		return "", start
	}
	i++
	for i < len(content) && (isASCIILetter(content[i]) || isASCIIDigit(content[i]) || content[i] == '_') {
		i++
	}
	return content[start:i], i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// mathDelimCount counts "$$" occurrences in a string.
func mathDelimCount(s string) int {
	return strings.Count(s, "$$")
}

// containsFootnoteRef reports whether a line references a footnote, e.g.
// "[^1]". Definitions match too, which is what single-block mode wants.
func containsFootnoteRef(content string) bool {
	for i := 0; i+2 < len(content); i++ {
		if content[i] == '[' && content[i+1] == '^' {
			if end := strings.IndexByte(content[i+2:], ']'); end > 0 {
				return true
			}
		}
	}
	return false
}
