package keyvalues

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/ulikunitz/xz"
)

// ParseFile parses the document at path together with every file it
// imports, directly or transitively, through #base directives. Import paths
// are relative to the directory of the file that names them.
//
// Files are merged breadth first: the entries of path itself come first,
// followed by those of its first import, its second import, and so on, then
// the imports of those files. Imports are never inlined at the position of
// the directive. A file that imports itself, directly or through other
// files, results in a [*CyclicImportError]; a file reached a second time by
// some other route is only merged once.
//
// Any error reading, decoding or parsing any of the files is returned
// immediately, with no partial result.
func ParseFile(path string, opts ...Option) (Section, error) {
	return newResolver(newOptions(opts)).resolve(path)
}

type pendingFile struct {
	path  string
	chain []string
}

type resolver struct {
	opts   *options
	merged map[string]bool
	// imports records the import graph by canonical key, in directive order.
	imports map[string][]string
}

func newResolver(opts *options) *resolver {
	return &resolver{opts: opts, merged: map[string]bool{}, imports: map[string][]string{}}
}

func (r *resolver) resolve(primary string) (Section, error) {
	result := Section{}
	queue := []pendingFile{{path: primary}}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		key := r.canonical(next.path)
		if slices.Contains(next.chain, key) {
			return nil, &CyclicImportError{Path: next.path, Chain: next.chain}
		}
		if r.merged[key] {
			r.opts.logger.Debug("skipping file already merged", "path", next.path)
			continue
		}
		r.merged[key] = true

		file, err := r.parseOne(next.path)
		if err != nil {
			return nil, err
		}
		r.opts.logger.Debug("parsed file", "path", next.path, "entries", len(file.Root), "imports", len(file.Imports))

		result = append(result, file.Root...)
		chain := append(slices.Clip(next.chain), key)
		for _, imp := range file.Imports {
			p := r.join(next.path, imp)
			r.imports[key] = append(r.imports[key], r.canonical(p))
			queue = append(queue, pendingFile{path: p, chain: chain})
		}
	}

	if err := r.findCycle(r.canonical(primary), nil, map[string]bool{}); err != nil {
		return nil, err
	}
	return result, nil
}

// findCycle walks the import graph depth first from key. Files merged once
// through separate routes can still import each other, which the chains of
// the breadth-first pass do not see.
func (r *resolver) findCycle(key string, chain []string, done map[string]bool) error {
	if slices.Contains(chain, key) {
		return &CyclicImportError{Path: key, Chain: chain}
	}
	if done[key] {
		return nil
	}
	chain = append(slices.Clip(chain), key)
	for _, imp := range r.imports[key] {
		if err := r.findCycle(imp, chain, done); err != nil {
			return err
		}
	}
	done[key] = true
	return nil
}

func (r *resolver) parseOne(name string) (*File, error) {
	data, err := r.readFile(name)
	if err != nil {
		return nil, err
	}
	return parse(name, data)
}

var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

func (r *resolver) readFile(name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if r.opts.fsys != nil {
		data, err = fs.ReadFile(r.opts.fsys, name)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: name, Err: err}
	}

	if !bytes.HasPrefix(data, xzMagic) {
		return data, nil
	}
	xr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &IOError{Op: "decompress", Path: name, Err: err}
	}
	data, err = io.ReadAll(xr)
	if err != nil {
		return nil, &IOError{Op: "decompress", Path: name, Err: err}
	}
	return data, nil
}

func (r *resolver) join(from, imp string) string {
	if r.opts.fsys != nil {
		if path.IsAbs(imp) {
			return path.Clean(imp[1:])
		}
		return path.Join(path.Dir(from), imp)
	}
	if filepath.IsAbs(imp) {
		return imp
	}
	return filepath.Join(filepath.Dir(from), imp)
}

// canonical returns the key used to recognise a file reached through
// different paths.
func (r *resolver) canonical(name string) string {
	if r.opts.fsys != nil {
		return path.Clean(name)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return filepath.Clean(name)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
