// Package source produces the chunk streams the CLI feeds into the
// splitter: file or stdin replay for offline work, and live model
// output from Anthropic or OpenAI for the real thing.
package source

import "context"

// Source delivers text chunks in order. The emit callback is invoked
// once per chunk; returning an error from it aborts the stream and
// surfaces that error.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(chunk string) error) error
}
