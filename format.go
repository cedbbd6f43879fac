package keyvalues

import (
	"strings"
	"unicode"
)

// Format re-indents KeyValue text. Every line is trimmed and then indented by
// its brace depth using [IndentWith] (two spaces by default). Braces inside
// strings and comments do not count, and the continuation lines of a string
// that spans several lines are left exactly as they are. Line breaks and
// content are otherwise preserved, so the input need not be valid.
//
// Format is idempotent, and the text produced by [Marshal] is already
// formatted.
func Format(text []byte, opts ...Option) []byte {
	o := newOptions(opts)
	return []byte(formatText(string(text), o.indent))
}

func formatText(text, indent string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var b strings.Builder
	depth := 0
	inString := false
	for _, line := range lines {
		if inString {
			b.WriteString(line)
			b.WriteByte('\n')
			var opens, closes int
			inString, opens, closes = scanLine(line, true)
			depth = max(depth+opens-closes, 0)
			continue
		}

		line = strings.TrimLeftFunc(line, unicode.IsSpace)
		endsInString, opens, closes := scanLine(line, false)
		if !endsInString {
			line = strings.TrimRightFunc(line, unicode.IsSpace)
		}
		level := depth
		if strings.HasPrefix(line, "}") {
			level = max(level-1, 0)
		}
		if line != "" {
			b.WriteString(strings.Repeat(indent, level))
			b.WriteString(line)
		}
		b.WriteByte('\n')
		depth = max(depth+opens-closes, 0)
		inString = endsInString
	}
	return b.String()
}

// scanLine counts the braces in line that are outside strings and comments,
// and reports whether line ends inside an open string.
func scanLine(line string, inString bool) (endsInString bool, opens, closes int) {
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			opens++
		case c == '}':
			closes++
		case c == '/' && strings.HasPrefix(line[i:], "//"):
			return false, opens, closes
		}
	}
	return inString, opens, closes
}

// trimRoot removes the braces around a top-level section, leaving its entries.
func trimRoot(text string) string {
	if !strings.HasPrefix(text, "{\n") || !strings.HasSuffix(text, "}\n") {
		return text
	}
	return text[len("{\n") : len(text)-len("}\n")]
}
