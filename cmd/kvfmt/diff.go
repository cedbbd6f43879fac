package main

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// printDiff writes a line diff between the original and formatted text of
// path, or nothing if they are the same.
func printDiff(e *env, path, before, after string) {
	if before == after {
		return
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	fmt.Fprintln(e.stdout, e.header.Sprintf("--- %s", path))
	fmt.Fprintln(e.stdout, e.header.Sprintf("+++ %s (formatted)", path))
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				fmt.Fprintln(e.stdout, e.removed.Sprint("-"+line))
			case diffmatchpatch.DiffInsert:
				fmt.Fprintln(e.stdout, e.added.Sprint("+"+line))
			case diffmatchpatch.DiffEqual:
				fmt.Fprintln(e.stdout, " "+line)
			}
		}
	}
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
