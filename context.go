package mdstream

// fenceState describes the open code fence, when there is one.
type fenceState struct {
	char   byte
	length int
	indent int
}

// ContainerFrame is one entry of the custom container stack. Boundary
// plugins push a frame when they recognize an opener (say ":::warning")
// and pop it on the matching end marker.
type ContainerFrame struct {
	Kind      string
	EndMarker string
}

// Context is the line-scoped state the boundary detector carries between
// lines. Plugins observe it and may manage the container stack; all other
// state is owned by the core.
type Context struct {
	fence       *fenceState
	htmlStack   []string
	htmlComment bool
	mathOpen    bool
	containers  []ContainerFrame

	listActive       bool
	listIndent       int
	lastMarkerIndent int

	quoteDepth   int
	footnoteOpen bool
}

// InFence reports whether a code fence is open.
func (c *Context) InFence() bool { return c.fence != nil }

// InHTML reports whether an HTML block or comment is open.
func (c *Context) InHTML() bool { return len(c.htmlStack) > 0 || c.htmlComment }

// InMath reports whether a $$ block is open.
func (c *Context) InMath() bool { return c.mathOpen }

// ContainerDepth returns the depth of the custom container stack.
func (c *Context) ContainerDepth() int { return len(c.containers) }

// TopContainer returns the innermost open container frame.
func (c *Context) TopContainer() (ContainerFrame, bool) {
	if len(c.containers) == 0 {
		return ContainerFrame{}, false
	}
	return c.containers[len(c.containers)-1], true
}

// PushContainer opens a custom container. Called by boundary plugins.
func (c *Context) PushContainer(f ContainerFrame) {
	c.containers = append(c.containers, f)
}

// PopContainer closes the innermost container. Pops are best-effort; a
// pop on an empty stack is ignored.
func (c *Context) PopContainer() {
	if len(c.containers) > 0 {
		c.containers = c.containers[:len(c.containers)-1]
	}
}

// pushHTML pushes an open tag; pops are best-effort top-down and a close
// for a tag not on the stack pops nothing.
func (c *Context) pushHTML(name string) {
	c.htmlStack = append(c.htmlStack, name)
}

func (c *Context) popHTML(name string) {
	for i := len(c.htmlStack) - 1; i >= 0; i-- {
		if c.htmlStack[i] == name {
			c.htmlStack = append(c.htmlStack[:i], c.htmlStack[i+1:]...)
			return
		}
	}
}

// applyHTMLTags runs a line's tags against the stack.
func (c *Context) applyHTMLTags(tags []htmlTag) {
	for _, t := range tags {
		switch {
		case t.closing:
			c.popHTML(t.name)
		case t.selfClosing:
		default:
			c.pushHTML(t.name)
		}
	}
}

// resetBlock clears state that belongs to the block that just committed.
// The container stack survives: a plugin-managed container can span what
// would otherwise be several blocks.
func (c *Context) resetBlock() {
	c.fence = nil
	c.htmlStack = c.htmlStack[:0]
	c.htmlComment = false
	c.mathOpen = false
	c.listActive = false
	c.listIndent = 0
	c.lastMarkerIndent = 0
	c.quoteDepth = 0
	c.footnoteOpen = false
}

// resetAll clears everything, containers included. Used by finalize and
// the single-block collapse.
func (c *Context) resetAll() {
	c.resetBlock()
	c.containers = c.containers[:0]
}
