package keyvalues

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrExpectedScalar is matched by a [*ShapeError] for a section found where a
	// scalar was required.
	ErrExpectedScalar = errors.New("expected scalar")
	// ErrExpectedSection is matched by a [*ShapeError] for a scalar found where a
	// section was required.
	ErrExpectedSection = errors.New("expected section")
	// ErrCharLength is returned when a [Char] is decoded from a scalar that is
	// not exactly one character long.
	ErrCharLength = errors.New("char must be exactly one character")
	// ErrUnitMismatch is returned when a unit (struct{}) is decoded from a
	// non-empty scalar.
	ErrUnitMismatch = errors.New("unit must be an empty scalar")
	// ErrKeyMustBeString is returned when a map key cannot be written as a string.
	ErrKeyMustBeString = errors.New("map key must be a string")
	// ErrFloatKeyMustBeFinite is returned for NaN or infinite float map keys.
	ErrFloatKeyMustBeFinite = errors.New("float map key must be finite")
	// ErrArrayLength is returned when a section has more elements than the
	// array it is decoded into.
	ErrArrayLength = errors.New("too many elements for array")
	// ErrUnknownField is returned for keys that match no struct field when
	// [DisallowUnknownFields] is set.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidTarget is returned when the decode target is not a non-nil pointer.
	ErrInvalidTarget = errors.New("invalid target, must be a non-nil pointer")
)

// IOError reports a file that could not be read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// EncodingError reports input that is not valid UTF-8.
type EncodingError struct {
	Path   string
	Offset int
}

func (e *EncodingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: invalid UTF-8 at byte %d", e.Path, e.Offset)
	}
	return fmt.Sprintf("invalid UTF-8 at byte %d", e.Offset)
}

// SyntaxError reports text rejected by the grammar, with the position the
// tokenizer stopped at and the tokens it would have accepted there.
type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Offset   int
	Message  string
	Expected string
}

func (e *SyntaxError) Error() string {
	name := e.Filename
	if name == "" {
		name = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Line, e.Column, e.Message)
}

// CyclicImportError reports a #base chain that leads back to a file already
// being imported.
type CyclicImportError struct {
	Path  string
	Chain []string
}

func (e *CyclicImportError) Error() string {
	return fmt.Sprintf("cyclic import of %s: %s -> %s", e.Path, strings.Join(e.Chain, " -> "), e.Path)
}

// ShapeError reports a tree node of the wrong kind for the requested shape.
type ShapeError struct {
	Expected Kind
	Actual   Kind
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

func (e *ShapeError) Unwrap() error {
	if e.Expected == KindSection {
		return ErrExpectedSection
	}
	return ErrExpectedScalar
}

// LiteralParseError reports scalar text that is not a valid literal of the
// requested type.
type LiteralParseError struct {
	Text string
	Type reflect.Type
	Err  error
}

func (e *LiteralParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Type, e.Text, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Type, e.Text)
}

func (e *LiteralParseError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned for Go types that have no KeyValue shape,
// such as channels and functions.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type: %s", e.Type)
}

// CustomError is an error raised by a [Marshaler] or [Unmarshaler].
type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// Errorf formats a [*CustomError].
func Errorf(format string, args ...any) error {
	return &CustomError{Message: fmt.Sprintf(format, args...)}
}

// DecodeError wraps any failure during decoding with the dotted key path of
// the node being decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("decode error at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError wraps any failure during encoding with the dotted key path of
// the value being encoded.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("encode error at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("encode error: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
