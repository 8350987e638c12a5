package mdstream

import "fmt"

// RefDefMode controls the reference-definition tracker.
type RefDefMode int

const (
	// RefDefOff disables tracking; definitions still split into their own
	// blocks but no invalidation signal is produced.
	RefDefOff RefDefMode = iota
	// RefDefInvalidate indexes labels and reports earlier committed
	// blocks that likely used a label when its definition commits.
	RefDefInvalidate
)

// FootnoteMode selects what happens when footnote syntax shows up.
type FootnoteMode int

const (
	// FootnoteSingleBlock collapses the whole document into one pending
	// block as soon as any footnote reference or definition appears.
	// This is the Streamdown-parity default.
	FootnoteSingleBlock FootnoteMode = iota
	// FootnoteInvalidate keeps multi-block splitting; committed footnote
	// definitions invalidate earlier blocks that reference their label.
	FootnoteInvalidate
)

// ImageBehavior selects how an incomplete image in the pending tail is
// presented.
type ImageBehavior int

const (
	// ImageDrop removes the incomplete image from the display view.
	ImageDrop ImageBehavior = iota
	// ImagePlaceholder completes the image with the placeholder URL.
	ImagePlaceholder
)

// DefaultLinkPlaceholder is the URL substituted into incomplete links.
const DefaultLinkPlaceholder = "streamdown:incomplete-link"

// DefaultTailWindow bounds how many trailing bytes of the pending block
// the transformer pipeline inspects per tick.
const DefaultTailWindow = 16 * 1024

type options struct {
	refDefs         RefDefMode
	footnotes       FootnoteMode
	linkPlaceholder string
	imageBehavior   ImageBehavior
	tailWindow      int
	maxBuffer       int
	transformers    []Transformer
	plugins         []BoundaryPlugin
}

func defaultOptions() options {
	return options{
		linkPlaceholder: DefaultLinkPlaceholder,
		tailWindow:      DefaultTailWindow,
	}
}

func (o *options) validate() error {
	switch o.refDefs {
	case RefDefOff, RefDefInvalidate:
	default:
		return fmt.Errorf("mdstream: unknown reference definition mode %d", o.refDefs)
	}
	switch o.footnotes {
	case FootnoteSingleBlock, FootnoteInvalidate:
	default:
		return fmt.Errorf("mdstream: unknown footnote mode %d", o.footnotes)
	}
	switch o.imageBehavior {
	case ImageDrop, ImagePlaceholder:
	default:
		return fmt.Errorf("mdstream: unknown image behavior %d", o.imageBehavior)
	}
	if o.linkPlaceholder == "" {
		return fmt.Errorf("mdstream: link placeholder must not be empty")
	}
	if o.tailWindow <= 0 {
		return fmt.Errorf("mdstream: tail window must be positive, got %d", o.tailWindow)
	}
	if o.maxBuffer < 0 {
		return fmt.Errorf("mdstream: max buffer must not be negative, got %d", o.maxBuffer)
	}
	return nil
}

// Option configures a Stream at construction time.
type Option func(*options)

// WithReferenceDefinitions enables or disables the reference-definition
// tracker.
func WithReferenceDefinitions(mode RefDefMode) Option {
	return func(o *options) { o.refDefs = mode }
}

// WithFootnoteMode selects the footnote strategy.
func WithFootnoteMode(mode FootnoteMode) Option {
	return func(o *options) { o.footnotes = mode }
}

// WithLinkPlaceholder overrides the URL substituted into incomplete
// links in the pending display view.
func WithLinkPlaceholder(url string) Option {
	return func(o *options) { o.linkPlaceholder = url }
}

// WithImageBehavior selects how incomplete images are displayed.
func WithImageBehavior(b ImageBehavior) Option {
	return func(o *options) { o.imageBehavior = b }
}

// WithTailWindow bounds the pending tail the transformer pipeline sees,
// in bytes. Larger windows catch unterminated syntax further back at
// proportionally more cost per tick.
func WithTailWindow(bytes int) Option {
	return func(o *options) { o.tailWindow = bytes }
}

// WithMaxBuffer caps retained buffer memory. When the cap is exceeded the
// head of the buffer is trimmed up to the pending block's start; committed
// blocks own their raw text, so nothing already emitted is affected. Zero
// means unbounded.
func WithMaxBuffer(bytes int) Option {
	return func(o *options) { o.maxBuffer = bytes }
}

// WithTransformer appends a pending-tail transformer. Transformers run in
// registration order after the built-in ones, each seeing the previous
// output.
func WithTransformer(t Transformer) Option {
	return func(o *options) { o.transformers = append(o.transformers, t) }
}

// WithBoundaryPlugin appends a boundary plugin. Plugins observe every
// complete line and may veto commits or manage custom containers; they
// can never change a block that already committed.
func WithBoundaryPlugin(p BoundaryPlugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, p) }
}
