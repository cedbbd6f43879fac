package keyvalues

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/ConradIrwin/keyvalues-go/syntax"
)

var bom = []byte("\ufeff")

// Parse parses a single KeyValue document. The #base directives are
// returned in [File.Imports] but not followed; use [ParseFile] to merge them.
//
// It returns an [*EncodingError] if data is not valid UTF-8, and a
// [*SyntaxError] if it does not match the grammar.
func Parse(data []byte) (*File, error) {
	return parse("", data)
}

// ParseText is like [Parse] for a string.
func ParseText(text string) (*File, error) {
	return parse("", []byte(text))
}

func parse(filename string, data []byte) (*File, error) {
	if !utf8.Valid(data) {
		return nil, &EncodingError{Path: filename, Offset: invalidOffset(data)}
	}
	data = bytes.TrimPrefix(data, bom)

	node, err := syntax.Parse(filename, data)
	if err != nil {
		return nil, newSyntaxError(err)
	}
	return buildFile(node), nil
}

func invalidOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}

func newSyntaxError(err error) error {
	var serr *syntax.Error
	if !errors.As(err, &serr) {
		return err
	}
	return &SyntaxError{
		Filename: serr.Pos.Filename,
		Line:     serr.Pos.Line,
		Column:   serr.Pos.Column,
		Offset:   serr.Pos.Offset,
		Message:  serr.Message,
		Expected: serr.Expected,
	}
}

func buildFile(node *syntax.File) *File {
	file := &File{Root: Section{}}
	for _, entry := range node.Entries {
		switch {
		case entry.KeyValue != nil:
			file.Root = append(file.Root, buildKeyValue(entry.KeyValue))
		case entry.Import != nil:
			file.Imports = append(file.Imports, unquote(entry.Import.Path))
		}
	}
	return file
}

func buildKeyValue(node *syntax.KeyValue) KeyValue {
	kv := KeyValue{Key: unquote(node.Key), Value: Scalar("")}
	switch {
	case node.Value != nil:
		kv.Value = Scalar(unquote(*node.Value))
	case node.Section != nil:
		kv.Value = buildSection(node.Section)
	}
	return kv
}

func buildSection(node *syntax.Section) Section {
	section := make(Section, 0, len(node.KeyValues))
	for _, child := range node.KeyValues {
		section = append(section, buildKeyValue(child))
	}
	return section
}
