// Package goldmarkast keeps a per-block goldmark AST cache on top of a
// split stream. Committed blocks parse exactly once; pending snapshots
// re-parse in place under their stable id; an invalidation re-parses
// exactly the blocks it names, and a reset drops every entry.
package goldmarkast

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/samsaffron/mdstream"
)

// entry is one cached parse.
type entry struct {
	block  mdstream.Block
	source []byte
	doc    ast.Node
	parses int
}

// Cache implements analyze.BlockAnalyzer with goldmark as the parser.
// It is not safe for concurrent use, matching the stream it follows.
type Cache struct {
	parser parser.Parser
	blocks map[mdstream.BlockID]*entry
	order  []mdstream.BlockID
}

// NewCache builds a cache backed by a GFM-flavored goldmark parser.
func NewCache() *Cache {
	md := goldmark.New(goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Footnote,
	))
	return &Cache{
		parser: md.Parser(),
		blocks: make(map[mdstream.BlockID]*entry),
	}
}

// AnalyzeBlock parses the block and caches its AST. Pending blocks parse
// their display view so half-open syntax never reaches the tree; a later
// call with the same id replaces the cached parse.
func (c *Cache) AnalyzeBlock(b mdstream.Block) {
	e, ok := c.blocks[b.ID]
	if !ok {
		e = &entry{}
		c.blocks[b.ID] = e
		c.order = append(c.order, b.ID)
	} else if e.block.Status == mdstream.StatusCommitted {
		// Committed parses are final.
		return
	}
	e.block = b
	e.source = []byte(b.View())
	e.doc = c.parser.Parse(text.NewReader(e.source))
	e.parses++
}

// Invalidate re-parses the named committed blocks from their retained
// raw text.
func (c *Cache) Invalidate(ids []mdstream.BlockID) {
	for _, id := range ids {
		e, ok := c.blocks[id]
		if !ok {
			continue
		}
		e.source = []byte(e.block.Raw)
		e.doc = c.parser.Parse(text.NewReader(e.source))
		e.parses++
	}
}

// Reset drops every cached parse.
func (c *Cache) Reset() {
	c.blocks = make(map[mdstream.BlockID]*entry)
	c.order = c.order[:0]
}

// Node returns the cached AST for a block id.
func (c *Cache) Node(id mdstream.BlockID) (ast.Node, bool) {
	e, ok := c.blocks[id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Source returns the bytes the cached AST positions refer to.
func (c *Cache) Source(id mdstream.BlockID) ([]byte, bool) {
	e, ok := c.blocks[id]
	if !ok {
		return nil, false
	}
	return e.source, true
}

// Parses reports how many times a block has been parsed; useful for
// asserting the once-per-commit property.
func (c *Cache) Parses(id mdstream.BlockID) int {
	if e, ok := c.blocks[id]; ok {
		return e.parses
	}
	return 0
}

// Walk visits every cached block's AST in document order.
func (c *Cache) Walk(fn func(id mdstream.BlockID, doc ast.Node, source []byte) error) error {
	for _, id := range c.order {
		e, ok := c.blocks[id]
		if !ok {
			continue
		}
		if err := fn(id, e.doc, e.source); err != nil {
			return err
		}
	}
	return nil
}
