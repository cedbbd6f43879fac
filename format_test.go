package keyvalues_test

import (
	"testing"

	"github.com/ConradIrwin/keyvalues-go"
)

func TestFormat(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
		out  string
	}{
		{
			name: "reindent",
			in:   "\"a\"\n      {\n\"b\" \"c\"\n\t\t\"d\"\n{\n\"e\" \"f\"\n      }\n}\n",
			out:  "\"a\"\n{\n  \"b\" \"c\"\n  \"d\"\n  {\n    \"e\" \"f\"\n  }\n}\n",
		},
		{
			name: "blank lines stay blank",
			in:   "\"a\" \"b\"\n   \n\"c\" \"d\"\n",
			out:  "\"a\" \"b\"\n\n\"c\" \"d\"\n",
		},
		{
			name: "comments do not change depth",
			in:   "\"a\"\n{\n// {\n\"b\" \"c\"\n// }\n}\n",
			out:  "\"a\"\n{\n  // {\n  \"b\" \"c\"\n  // }\n}\n",
		},
		{
			name: "stray closing brace",
			in:   "}\n\"a\" \"b\"",
			out:  "}\n\"a\" \"b\"\n",
		},
		{
			name: "directives",
			in:   "  #base \"a.kv\"\n\"x\" { \"y\" \"z\" }\n",
			out:  "#base \"a.kv\"\n\"x\" { \"y\" \"z\" }\n",
		},
		{
			name: "one-line sections",
			in:   "\"a\"\n{\n\"x\" { \"y\" \"z\" }\n\"b\" \"c\"\n}\n",
			out:  "\"a\"\n{\n  \"x\" { \"y\" \"z\" }\n  \"b\" \"c\"\n}\n",
		},
		{
			name: "multi-line strings are kept",
			in:   "\"a\"\n{\n\"m\" \"x  \n    y\n}\"\n   \"b\" \"c\"\n}\n",
			out:  "\"a\"\n{\n  \"m\" \"x  \n    y\n}\"\n  \"b\" \"c\"\n}\n",
		},
		{
			name: "braces in strings and comments",
			in:   "\"a\" \"{\" // }\n\"b\" \"say \\\"}\\\"\"\n\"url\" \"http://x/{\"\n\"c\" \"d\"\n",
			out:  "\"a\" \"{\" // }\n\"b\" \"say \\\"}\\\"\"\n\"url\" \"http://x/{\"\n\"c\" \"d\"\n",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			out := string(keyvalues.Format([]byte(test.in)))
			if out != test.out {
				t.Fatalf("expected\n%q\ngot\n%q", test.out, out)
			}
			if again := string(keyvalues.Format([]byte(out))); again != out {
				t.Fatalf("not idempotent:\n%q\n%q", out, again)
			}
		})
	}
}

func TestFormatIndent(t *testing.T) {
	out := keyvalues.Format([]byte("\"a\"\n{\n\"b\" \"c\"\n}"), keyvalues.IndentWith("    "))
	if string(out) != "\"a\"\n{\n    \"b\" \"c\"\n}\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
