package source

import (
	"context"
	"io"
	"time"
)

// Replay reads from r in fixed-size chunks with an optional delay
// between them, simulating how a model streams tokens. It is the
// workhorse behind `mdstream render file.md --chunk-size 16`.
type Replay struct {
	r         io.Reader
	chunkSize int
	delay     time.Duration
}

// NewReplay wraps a reader. A chunkSize <= 0 reads in 4 KiB chunks.
func NewReplay(r io.Reader, chunkSize int, delay time.Duration) *Replay {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &Replay{r: r, chunkSize: chunkSize, delay: delay}
}

func (p *Replay) Name() string { return "replay" }

func (p *Replay) Run(ctx context.Context, emit func(string) error) error {
	buf := make([]byte, p.chunkSize)
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first && p.delay > 0 {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		first = false

		n, err := p.r.Read(buf)
		if n > 0 {
			if emitErr := emit(string(buf[:n])); emitErr != nil {
				return emitErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
