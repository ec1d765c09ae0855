// Package generator renders a module table into an inline script or a zip
// application, and into diagrams of the import graph.
package generator

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"strings"

	"scriptmerge/internal/extractor"
	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
)

//go:embed prelude.py
var prelude string

// Prelude returns the loader snippet that inline artifacts start with.
func Prelude() string {
	return prelude
}

const defaultShebang = "#!/usr/bin/env python3\n"

// SourceCleaner is applied to the entry script when Options.Clean is set.
type SourceCleaner interface {
	Clean(path string, sourceCode []byte) ([]byte, error)
}

// Options shared by both emitters.
type Options struct {
	// Entry is the path of the entry script, used for diagnostics, hooks
	// and the archive name of the entry when IncludeMainPy is off.
	Entry       string
	CopyShebang bool
	Clean       bool
	Cleaner     SourceCleaner
	// IncludeMainPy registers the entry as __main__.py instead of appending
	// it directly.
	IncludeMainPy bool
	// IncludeInitPy registers an empty root __init__.py in inline mode.
	// Archives always get one.
	IncludeInitPy bool
	Hook          hook.Func
}

// Emitter renders the final artifact. Modules are emitted in table order
// and the entry script always runs last.
//
// Prepare fires the events for the part of the artifact that does not
// depend on the module table (shebang, prelude). Callers run it before
// building the table; Emit runs it itself when it has not happened yet.
type Emitter interface {
	Prepare(entrySource []byte)
	Emit(table *graph.ModuleTable, entrySource []byte) ([]byte, error)
}

// header caches what Prepare produced.
type header struct {
	prepared bool
	text     []byte
}

// NewEmitter picks the archive or the inline strategy.
func NewEmitter(archive bool, opts Options) Emitter {
	if archive {
		return NewArchiveEmitter(opts)
	}
	return NewInlineEmitter(opts)
}

// shebangLine returns the first line of the artifact and whether it
// should be written at all.
func shebangLine(opts Options, entrySource []byte) (string, bool) {
	line := defaultShebang
	if opts.CopyShebang && bytes.HasPrefix(entrySource, []byte("#!")) {
		first, _, found := bytes.Cut(entrySource, []byte("\n"))
		line = string(first)
		if found {
			line += "\n"
		}
	}

	ev := &hook.ShebangEvent{Entry: opts.Entry, Shebang: line, CopyShebang: opts.CopyShebang, Clean: opts.Clean}
	opts.Hook.Fire(ev)
	return ev.Shebang, !ev.Cancel
}

// mainSource returns the bytes stored as __main__.py. A MainFileEvent may
// point at another directory whose __main__.py replaces the entry.
func mainSource(opts Options, entrySource []byte) ([]byte, error) {
	ev := &hook.MainFileEvent{Entry: opts.Entry, Clean: opts.Clean}
	opts.Hook.Fire(ev)

	path := opts.Entry
	source := entrySource
	if ev.Dir != "" {
		path = filepath.Join(ev.Dir, "__main__.py")
		replacement, err := extractor.ReadSource(path)
		if err != nil {
			return nil, err
		}
		source = replacement
	}
	return cleanSource(opts, path, source)
}

func cleanSource(opts Options, path string, source []byte) ([]byte, error) {
	if !opts.Clean || opts.Cleaner == nil {
		return source, nil
	}
	return opts.Cleaner.Clean(path, source)
}

// initContent fires an InitFileEvent for path. The returned content gets a
// trailing newline when the hook supplied any.
func initContent(opts Options, path string) (string, bool) {
	ev := &hook.InitFileEvent{Path: path}
	opts.Hook.Fire(ev)
	if ev.Cancel {
		return "", false
	}
	content := ev.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content, true
}

// entryBaseName is the archive name of the entry when no __main__.py wraps it.
func entryBaseName(entry string) string {
	base := filepath.Base(entry)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".py"
}
