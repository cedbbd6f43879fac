package syntax_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ConradIrwin/keyvalues-go/syntax"
)

func TestParse(t *testing.T) {
	src := `#base "other.kv"
"key" "value"
"section"
{
	"inner" "x" // comment
}`
	file, err := syntax.Parse("test.kv", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(file.Entries))
	}

	imp := file.Entries[0].Import
	if imp == nil || imp.Path != `"other.kv"` {
		t.Fatalf("expected import of \"other.kv\", got %#v", file.Entries[0])
	}

	kv := file.Entries[1].KeyValue
	if kv == nil || kv.Key != `"key"` || kv.Value == nil || *kv.Value != `"value"` {
		t.Fatalf("unexpected key value %#v", kv)
	}
	if kv.Pos.Line != 2 || kv.Pos.Filename != "test.kv" {
		t.Errorf("unexpected position %v", kv.Pos)
	}

	section := file.Entries[2].KeyValue
	if section == nil || section.Section == nil || len(section.Section.KeyValues) != 1 {
		t.Fatalf("unexpected section %#v", section)
	}
	if inner := section.Section.KeyValues[0]; inner.Key != `"inner"` || inner.Pos.Line != 5 {
		t.Errorf("unexpected inner key value %#v", inner)
	}
}

func TestParseEscapedQuotes(t *testing.T) {
	file, err := syntax.Parse("", []byte(`"a\"b" "c\\"`))
	if err != nil {
		t.Fatal(err)
	}
	kv := file.Entries[0].KeyValue
	if kv.Key != `"a\"b"` || *kv.Value != `"c\\"` {
		t.Errorf("tokens were not kept verbatim: %s %s", kv.Key, *kv.Value)
	}
}

func TestParseError(t *testing.T) {
	_, err := syntax.Parse("bad.kv", []byte("\"a\" \"b\"\n\"c\" }"))
	var serr *syntax.Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected a syntax.Error, got %v", err)
	}
	if serr.Pos.Filename != "bad.kv" || serr.Pos.Line != 2 {
		t.Errorf("unexpected position %v", serr.Pos)
	}
	if !strings.HasPrefix(serr.Error(), "bad.kv:2:") {
		t.Errorf("unexpected message %q", serr.Error())
	}
}

func TestGrammar(t *testing.T) {
	if g := syntax.String(); !strings.Contains(g, "#base") {
		t.Errorf("grammar does not mention #base:\n%s", g)
	}
}
