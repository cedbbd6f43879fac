package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const unformatted = "// header\n\"b\"\n    {\n\"c\" \"d\" // kept\n      }\n  #base \"x.kv\"\n\"a\" \"1\"\n"

const formatted = "// header\n\"b\"\n{\n  \"c\" \"d\" // kept\n}\n#base \"x.kv\"\n\"a\" \"1\"\n"

func TestFmt(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.kv": unformatted})
	path := filepath.Join(dir, "a.kv")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"fmt", path}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(formatted, stdout.String()); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}

	stdout.Reset()
	if err := run([]string{"fmt", "-w", path}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output with -w, got %q", stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(formatted, string(data)); diff != "" {
		t.Errorf("unexpected file contents (-want +got):\n%s", diff)
	}
}

func TestFmtIndent(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.kv": "\"a\"\n{\n\"b\" \"c\"\n}"})

	var stdout, stderr bytes.Buffer
	if err := run([]string{"fmt", "--indent=\t", filepath.Join(dir, "a.kv")}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "\"a\"\n{\n\t\"b\" \"c\"\n}\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestFmtDiff(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.kv": unformatted, "b.kv": formatted})

	var stdout, stderr bytes.Buffer
	if err := run([]string{"fmt", "-d", filepath.Join(dir, "a.kv"), filepath.Join(dir, "b.kv")}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	for _, want := range []string{
		"--- " + filepath.Join(dir, "a.kv") + "\n",
		"-\"c\" \"d\" // kept\n",
		"+  \"c\" \"d\" // kept\n",
		" \"a\" \"1\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected diff to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "b.kv") {
		t.Errorf("expected no diff for a formatted file, got:\n%s", out)
	}
}

func TestFmtSyntaxError(t *testing.T) {
	dir := writeFiles(t, map[string]string{"bad.kv": "\"a\" \"b\"\n}"})
	path := filepath.Join(dir, "bad.kv")

	var stdout, stderr bytes.Buffer
	err := run([]string{"fmt", path}, &stdout, &stderr)
	if err == nil || !strings.HasPrefix(err.Error(), path+":2:") {
		t.Fatalf("expected a positioned syntax error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.kv":   `#base "missing.kv" "a" "b"`,
		"bad.kv":    "\"a\"\n{\n",
		"broken.kv": "\"a\" \"\xff\"",
	})

	var stdout, stderr bytes.Buffer
	err := run([]string{"check", filepath.Join(dir, "good.kv"), filepath.Join(dir, "bad.kv"), filepath.Join(dir, "broken.kv")}, &stdout, &stderr)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("expected check to fail, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 of 3 files") {
		t.Errorf("unexpected error %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two failures, got:\n%s", stderr.String())
	}
	if !strings.HasPrefix(lines[0], filepath.Join(dir, "bad.kv")+":") {
		t.Errorf("expected failure to name bad.kv, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], filepath.Join(dir, "broken.kv")+": invalid UTF-8") {
		t.Errorf("expected failure to name broken.kv, got %q", lines[1])
	}

	stderr.Reset()
	err = run([]string{"check", "--imports", filepath.Join(dir, "good.kv")}, &stdout, &stderr)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("expected the missing import to fail, got %v", err)
	}
	if !strings.Contains(stderr.String(), "missing.kv") {
		t.Errorf("expected failure to name missing.kv, got %q", stderr.String())
	}
}

func TestExport(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.kv": `#base "b.kv" "a" "1" "s" { "x" "y" }`,
		"b.kv": `"b" "2"`,
	})
	path := filepath.Join(dir, "a.kv")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--verbose", "export", path}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML %q: %v", stdout.String(), err)
	}
	expected := map[string]any{"a": "1", "s": map[string]any{"x": "y"}, "b": "2"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected export (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr.String(), "parsed file") {
		t.Errorf("expected --verbose to log imports, got %q", stderr.String())
	}

	stdout.Reset()
	if err := run([]string{"export", "--format=json", path}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	got = nil
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected export (-want +got):\n%s", diff)
	}
}
