package keyvalues

import "strings"

// A KeyValue pairs a key with either a [Scalar] or a nested [Section].
type KeyValue struct {
	Key   string
	Value Value
}

// Value is either a [Scalar] or a [Section].
type Value interface {
	isValue()
}

// Scalar is a leaf value holding literal text.
type Scalar string

// Section is an ordered list of key value pairs. Keys need not be unique,
// and the order is always the order of the source (or of construction).
type Section []KeyValue

func (Scalar) isValue()  {}
func (Section) isValue() {}

// File is the result of parsing a single document: its top-level entries and
// the paths named by its #base directives, both in source order.
type File struct {
	Imports []string
	Root    Section
}

// Get returns the value of the first entry with the given key.
func (s Section) Get(key string) (Value, bool) {
	for _, kv := range s {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// All returns the values of every entry with the given key, in order.
func (s Section) All(key string) []Value {
	var values []Value
	for _, kv := range s {
		if kv.Key == key {
			values = append(values, kv.Value)
		}
	}
	return values
}

// Kind describes the structural kind of a tree node.
type Kind int

const (
	KindScalar Kind = iota
	KindSection
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSection:
		return "section"
	default:
		panic("Unknown Kind")
	}
}

func kindOf(v Value) Kind {
	if _, ok := v.(Section); ok {
		return KindSection
	}
	return KindScalar
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

// quote wraps s in quotes. Only quotes, and backslashes that would otherwise
// read as an escape, are escaped; other characters, including line breaks,
// are written as they are.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\' && (i+1 == len(s) || strings.IndexByte("\\\"\n", s[i+1]) >= 0):
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unquote strips the surrounding quotes of a quoted token and resolves \"
// and \\. Any other backslash is part of the text, so "C:\Games" reads as
// C:\Games.
func unquote(s string) string {
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	if !strings.Contains(s, `\`) {
		return s
	}
	return unescaper.Replace(s)
}
