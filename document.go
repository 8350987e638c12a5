package mdstream

// DocumentState is a consumer-side helper that folds Updates into the
// current view of the document, applying reset semantics so callers
// cannot accidentally keep stale blocks around after a single-block
// collapse.
type DocumentState struct {
	committed []Block
	pending   *Block
}

// Apply folds one update into the state and returns the ids invalidated
// by it, for callers that cache per-block derived data.
func (d *DocumentState) Apply(u Update) []BlockID {
	if u.Reset {
		d.committed = d.committed[:0]
	}
	d.committed = append(d.committed, u.Committed...)
	if u.Pending != nil {
		p := *u.Pending
		d.pending = &p
	} else {
		d.pending = nil
	}
	return u.Invalidated
}

// Committed returns the committed blocks in order. The slice is owned by
// the state; callers must not modify it.
func (d *DocumentState) Committed() []Block {
	return d.committed
}

// Pending returns the current pending block, if any.
func (d *DocumentState) Pending() *Block {
	return d.pending
}

// Blocks returns committed blocks plus the pending one, in document
// order.
func (d *DocumentState) Blocks() []Block {
	out := make([]Block, 0, len(d.committed)+1)
	out = append(out, d.committed...)
	if d.pending != nil {
		out = append(out, *d.pending)
	}
	return out
}

// Text reassembles the document from the blocks currently held.
func (d *DocumentState) Text() string {
	var b []byte
	for _, blk := range d.committed {
		b = append(b, blk.Raw...)
	}
	if d.pending != nil {
		b = append(b, d.pending.Raw...)
	}
	return string(b)
}
