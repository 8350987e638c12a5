// Package analyze fans stream updates out to block analyzers: consumers
// that keep per-block derived state (an AST cache, a search index, a
// syntax highlighter) and only want to hear about blocks once, plus the
// invalidation and reset signals that tell them to redo work.
package analyze

import (
	"log/slog"

	"github.com/samsaffron/mdstream"
)

// BlockAnalyzer receives the block lifecycle. AnalyzeBlock is called once
// per committed block and once per pending snapshot (pending snapshots
// repeat the same id with evolving content). Invalidate names committed
// blocks whose interpretation changed; Reset withdraws everything.
type BlockAnalyzer interface {
	AnalyzeBlock(b mdstream.Block)
	Invalidate(ids []mdstream.BlockID)
	Reset()
}

// AnalyzedStream wraps a Stream and fans each update out to registered
// analyzers in registration order. A panicking analyzer is logged and
// skipped for the rest of the tick; it never corrupts the stream or the
// other analyzers.
type AnalyzedStream struct {
	stream    *mdstream.Stream
	analyzers []BlockAnalyzer
}

// New wraps a stream. The stream must not be appended to directly while
// wrapped, or analyzers will miss updates.
func New(s *mdstream.Stream, analyzers ...BlockAnalyzer) *AnalyzedStream {
	return &AnalyzedStream{stream: s, analyzers: analyzers}
}

// Append feeds a chunk through the stream and dispatches the update.
func (a *AnalyzedStream) Append(chunk []byte) mdstream.Update {
	u := a.stream.Append(chunk)
	a.dispatch(u)
	return u
}

// Finalize ends the stream and dispatches the closing update.
func (a *AnalyzedStream) Finalize() mdstream.Update {
	u := a.stream.Finalize()
	a.dispatch(u)
	return u
}

// Snapshot exposes the wrapped stream's snapshot.
func (a *AnalyzedStream) Snapshot() mdstream.Snapshot {
	return a.stream.Snapshot()
}

func (a *AnalyzedStream) dispatch(u mdstream.Update) {
	for _, an := range a.analyzers {
		a.send(an, u)
	}
}

func (a *AnalyzedStream) send(an BlockAnalyzer, u mdstream.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("block analyzer panicked", "error", r)
		}
	}()
	if u.Reset {
		an.Reset()
	}
	if len(u.Invalidated) > 0 {
		an.Invalidate(u.Invalidated)
	}
	for _, b := range u.Committed {
		an.AnalyzeBlock(b)
	}
	if u.Pending != nil {
		an.AnalyzeBlock(*u.Pending)
	}
}
