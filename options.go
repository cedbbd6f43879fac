package keyvalues

import (
	"io/fs"
	"log/slog"
)

// An Option configures parsing, decoding, encoding or formatting. Options
// that do not apply to an operation are ignored by it.
type Option func(*options)

type options struct {
	indent       string
	wrapRoot     bool
	lexicalOrder bool
	strictFields bool
	logger       *slog.Logger
	fsys         fs.FS
}

func newOptions(opts []Option) *options {
	o := &options{
		indent: "  ",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IndentWith sets the indent unit used by [Format] and [Marshal]. The
// default is two spaces.
func IndentWith(unit string) Option {
	return func(o *options) { o.indent = unit }
}

// WrapRoot makes [Marshal] keep the outermost braces, so a top-level struct
// or map is rendered as a single section rather than as bare key value lines.
func WrapRoot(v bool) Option {
	return func(o *options) { o.wrapRoot = v }
}

// LexicalSequenceOrder makes sequences decode their elements in plain
// lexicographic key order ("10" before "2"), as older readers did. By
// default integer keys are compared numerically.
func LexicalSequenceOrder(v bool) Option {
	return func(o *options) { o.lexicalOrder = v }
}

// DisallowUnknownFields makes decoding into a struct fail with
// [ErrUnknownField] for keys that match no field.
func DisallowUnknownFields(v bool) Option {
	return func(o *options) { o.strictFields = v }
}

// WithLogger sets the logger used to report import resolution at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFS makes [ParseFile] and [UnmarshalFile] read from fsys, using slash
// separated paths, instead of the operating system.
func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}
