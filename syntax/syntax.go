// Package syntax is the grammar of KeyValue documents.
//
// It turns text into a tree of typed parse nodes, each carrying the position
// it was found at. Quoted tokens are kept exactly as written (quotes and
// escapes included); interpreting them is left to the caller.
//
//	file      := (import | keyvalue)*
//	import    := "#base" quoted-string
//	keyvalue  := key (value | section)
//	section   := "{" keyvalue* "}"
//
// Whitespace and // comments are insignificant.
package syntax

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// File is the root node of a document.
type File struct {
	Pos     lexer.Position
	Entries []*Entry `@@*`
}

// Entry is a top-level node: an import or a key value pair. Entries with
// neither set are not produced by this grammar, and callers should skip them.
type Entry struct {
	Pos      lexer.Position
	Import   *Import   `  @@`
	KeyValue *KeyValue `| @@`
}

// Import is a #base directive. Path is the quoted token.
type Import struct {
	Pos  lexer.Position
	Path string `"#base" @String`
}

// KeyValue is a quoted key followed by either a quoted value or a section.
type KeyValue struct {
	Pos     lexer.Position
	Key     string   `@String`
	Value   *string  `( @String`
	Section *Section `| @@ )`
}

// Section is a brace-delimited list of key value pairs.
type Section struct {
	Pos       lexer.Position
	KeyValues []*KeyValue `"{" @@* "}"`
}

// kvLexer tokenizes KeyValue text. A quoted string may not contain a bare
// quote, so text such as "a"b" fails to lex instead of being split.
var kvLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\r\n]*`},
	{Name: "Base", Pattern: `#base\b`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Punct", Pattern: `[{}]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var kvParser = participle.MustBuild[File](
	participle.Lexer(kvLexer),
	participle.Elide("Comment", "Whitespace"),
)

// Error is a lexing or parsing failure.
type Error struct {
	Pos     lexer.Position
	Message string
	// Expected is the tokenizer's description of what would have been
	// accepted at Pos, or "" if it did not say.
	Expected string
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Message
}

// Parse parses src. filename is only used in positions.
func Parse(filename string, src []byte) (*File, error) {
	file, err := kvParser.ParseBytes(filename, src)
	if err != nil {
		return nil, newError(filename, err)
	}
	return file, nil
}

func newError(filename string, err error) *Error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &Error{Pos: lexer.Position{Filename: filename}, Message: err.Error()}
	}
	msg := perr.Message()
	return &Error{
		Pos:      perr.Position(),
		Message:  msg,
		Expected: expected(msg),
	}
}

// expected extracts the "(expected ...)" suffix participle appends to
// unexpected token messages.
func expected(msg string) string {
	_, rest, found := strings.Cut(msg, "(expected ")
	if !found {
		return ""
	}
	return strings.TrimSuffix(rest, ")")
}

// String returns the grammar in EBNF.
func String() string {
	return kvParser.String()
}
