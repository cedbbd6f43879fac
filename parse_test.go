package keyvalues_test

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ConradIrwin/keyvalues-go"
)

func fileToJSON(f *keyvalues.File) string {
	output := &strings.Builder{}
	for _, imp := range f.Imports {
		output.WriteString("#base " + strconv.Quote(imp) + "\n")
	}
	sectionToJSON(f.Root, output)
	return output.String()
}

func sectionToJSON(s keyvalues.Section, output *strings.Builder) {
	output.WriteString("[")
	for i, kv := range s {
		if i > 0 {
			output.WriteString(",")
		}
		output.WriteString("[" + strconv.Quote(kv.Key) + ",")
		switch v := kv.Value.(type) {
		case keyvalues.Scalar:
			output.WriteString(strconv.Quote(string(v)))
		case keyvalues.Section:
			sectionToJSON(v, output)
		}
		output.WriteString("]")
	}
	output.WriteString("]")
}

func TestEquivalence(t *testing.T) {
	examples, err := os.ReadFile("testdata/examples.txt")
	if err != nil {
		t.Fatalf("Failed to read examples file: %v", err)
	}

	examplesStr := strings.ReplaceAll(string(examples), "␉", "\t")
	examplesStr = strings.ReplaceAll(examplesStr, "␊", "\r")

	for _, example := range strings.Split(examplesStr, "\n===\n") {
		parts := strings.SplitN(example, "\n---\n", 2)
		if len(parts) != 2 {
			t.Fatalf("Invalid example format: %s", example)
		}
		input, expected := parts[0], strings.TrimSpace(parts[1])

		file, err := keyvalues.ParseText(input)
		if err != nil {
			t.Fatalf("Failed to parse: %v\nInput: %s", err, input)
		}
		if output := fileToJSON(file); output != expected {
			t.Fatalf("Mismatch:\nInput: %#v\nExpected: %#v\nGot: %#v", input, expected, output)
		}
	}
}

func TestParseTree(t *testing.T) {
	file, err := keyvalues.Parse([]byte(`
	"key1"
	{
		"key1_nested" "value1"
	}
	"key2" "value2"
	`))
	if err != nil {
		t.Fatal(err)
	}

	expected := &keyvalues.File{
		Root: keyvalues.Section{
			{Key: "key1", Value: keyvalues.Section{
				{Key: "key1_nested", Value: keyvalues.Scalar("value1")},
			}},
			{Key: "key2", Value: keyvalues.Scalar("value2")},
		},
	}
	if diff := cmp.Diff(expected, file); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}

	if v, ok := file.Root.Get("key2"); !ok || v != keyvalues.Scalar("value2") {
		t.Errorf("Get(key2) = %v, %v", v, ok)
	}
	if _, ok := file.Root.Get("missing"); ok {
		t.Errorf("Get(missing) found a value")
	}
}

func TestParseAll(t *testing.T) {
	file, err := keyvalues.ParseText(`"a" "1" "b" "x" "a" "2"`)
	if err != nil {
		t.Fatal(err)
	}
	expected := []keyvalues.Value{keyvalues.Scalar("1"), keyvalues.Scalar("2")}
	if diff := cmp.Diff(expected, file.Root.All("a")); diff != "" {
		t.Errorf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestParseByteOrderMark(t *testing.T) {
	file, err := keyvalues.Parse([]byte("\ufeff\"a\" \"b\""))
	if err != nil {
		t.Fatal(err)
	}
	if got := fileToJSON(file); got != `[["a","b"]]` {
		t.Errorf("got %s", got)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name  string
		input string
		line  int
	}{
		{name: "bare quote", input: `"a" "x"y"`, line: 1},
		{name: "missing value", input: "\"a\" \"b\"\n\"c\"", line: 2},
		{name: "unclosed section", input: "\"a\"\n{\n\"b\" \"c\"", line: 3},
		{name: "stray brace", input: "\"a\" \"b\"\n}", line: 2},
		{name: "unterminated string", input: `"a" "b`, line: 1},
		{name: "unquoted key", input: `a "b"`, line: 1},
		{name: "base without path", input: `#base {}`, line: 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := keyvalues.ParseText(test.input)
			var serr *keyvalues.SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("expected a SyntaxError, got %v", err)
			}
			if serr.Line != test.line {
				t.Errorf("expected error on line %d, got %d (%v)", test.line, serr.Line, err)
			}
			if !strings.HasPrefix(err.Error(), "<input>:") {
				t.Errorf("expected message to start with position, got %q", err.Error())
			}
		})
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := keyvalues.Parse([]byte("\"a\" \"\xff\""))
	var eerr *keyvalues.EncodingError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected an EncodingError, got %v", err)
	}
	if eerr.Offset != 5 {
		t.Errorf("expected offset 5, got %d", eerr.Offset)
	}
}
