package mdstream

import "strings"

// BoundaryPlugin extends the boundary detector. Plugins see every
// complete line (newline stripped) together with the running context and
// get a chance to keep the pending block open where the core would have
// committed it. Committed blocks are out of reach: a plugin cannot alter
// or re-open them.
type BoundaryPlugin interface {
	// ObserveLine is called once per complete line before the core
	// classifies it. Plugins may push or pop container frames on ctx.
	ObserveLine(line string, ctx *Context)

	// VetoCommit is asked before the core commits the pending block at
	// this line. Returning true keeps the block open.
	VetoCommit(line string, ctx *Context) bool
}

// directivePlugin implements ":::"-style container directives, the
// common extension in chat markdown (":::warning" ... ":::"). While a
// container is open the whole span stays one pending block.
type directivePlugin struct {
	marker string
}

// Directives returns a boundary plugin recognizing fenced container
// directives opened by ":::name" and closed by a bare ":::".
func Directives() BoundaryPlugin {
	return &directivePlugin{marker: ":::"}
}

func (d *directivePlugin) ObserveLine(line string, ctx *Context) {
	if ctx.InFence() || ctx.InHTML() {
		return
	}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, d.marker) {
		return
	}
	rest := strings.TrimSpace(trimmed[len(d.marker):])
	if rest == "" {
		ctx.PopContainer()
		return
	}
	ctx.PushContainer(ContainerFrame{Kind: rest, EndMarker: d.marker})
}

func (d *directivePlugin) VetoCommit(line string, ctx *Context) bool {
	return ctx.ContainerDepth() > 0
}
