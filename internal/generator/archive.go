package generator

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
)

// AmbiguousOutputPathError reports two different sources that would be
// stored under the same archive path.
type AmbiguousOutputPathError struct {
	Path   string
	First  string
	Second string
}

func (e *AmbiguousOutputPathError) Error() string {
	return fmt.Sprintf("archive path %s is produced by both %s and %s", e.Path, e.First, e.Second)
}

// archiveEpoch keeps archives byte-identical across builds.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveEmitter produces a zip application prefixed with a shebang line.
type ArchiveEmitter struct {
	opts Options
	head header
}

func NewArchiveEmitter(opts Options) *ArchiveEmitter {
	return &ArchiveEmitter{opts: opts}
}

type archiveFile struct {
	path    string
	origin  string
	content []byte
}

// Prepare renders the shebang that precedes the zip data.
func (e *ArchiveEmitter) Prepare(entrySource []byte) {
	if e.head.prepared {
		return
	}
	e.head.prepared = true
	if line, ok := shebangLine(e.opts, entrySource); ok {
		e.head.text = []byte(line)
	}
}

func (e *ArchiveEmitter) Emit(table *graph.ModuleTable, entrySource []byte) ([]byte, error) {
	e.Prepare(entrySource)
	files, err := e.layout(table, entrySource)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(e.head.text)

	zw := zip.NewWriter(&out)
	zw.SetOffset(int64(out.Len()))
	for _, f := range files {
		header := &zip.FileHeader{Name: f.path, Method: zip.Deflate, Modified: archiveEpoch}
		header.SetMode(0o644)
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", f.path, err)
		}
		if _, err := w.Write(f.content); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", f.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return out.Bytes(), nil
}

// layout orders the archive: root __init__.py, then every module preceded by
// any package initializer it is missing, then the entry.
func (e *ArchiveEmitter) layout(table *graph.ModuleTable, entrySource []byte) ([]archiveFile, error) {
	modules := table.Modules()
	present := make(map[string]bool, len(modules))
	for _, m := range modules {
		present[m.RelPath] = true
	}

	var files []archiveFile
	origins := make(map[string]string)
	add := func(f archiveFile) error {
		if prev, ok := origins[f.path]; ok {
			if prev == f.origin {
				return nil
			}
			return &AmbiguousOutputPathError{Path: f.path, First: prev, Second: f.origin}
		}
		origins[f.path] = f.origin
		files = append(files, f)
		return nil
	}
	initSeen := make(map[string]bool)
	addInit := func(p string) error {
		if present[p] || initSeen[p] {
			return nil
		}
		initSeen[p] = true
		content, ok := initContent(e.opts, p)
		if !ok {
			return nil
		}
		return add(archiveFile{path: p, origin: "<generated " + p + ">", content: []byte(content)})
	}

	if err := addInit("__init__.py"); err != nil {
		return nil, err
	}
	for _, m := range modules {
		for _, dir := range parentDirs(m.RelPath, m.IsPackage) {
			if err := addInit(dir + "/__init__.py"); err != nil {
				return nil, err
			}
		}
		if err := add(archiveFile{path: m.RelPath, origin: m.AbsPath, content: m.Source}); err != nil {
			return nil, err
		}
	}

	if e.opts.IncludeMainPy {
		source, err := mainSource(e.opts, entrySource)
		if err != nil {
			return nil, err
		}
		ev := &hook.MainContentEvent{Entry: e.opts.Entry, Contents: source}
		e.opts.Hook.Fire(ev)
		if err := add(archiveFile{path: "__main__.py", origin: e.opts.Entry, content: ev.Contents}); err != nil {
			return nil, err
		}
		return files, nil
	}

	source, err := cleanSource(e.opts, e.opts.Entry, entrySource)
	if err != nil {
		return nil, err
	}
	if err := add(archiveFile{path: entryBaseName(e.opts.Entry), origin: e.opts.Entry, content: source}); err != nil {
		return nil, err
	}
	return files, nil
}

// parentDirs lists the package directories above relPath, outermost first.
// A package's own directory is excluded since its __init__.py is relPath.
func parentDirs(relPath string, isPackage bool) []string {
	dir := path.Dir(relPath)
	if isPackage {
		dir = path.Dir(dir)
	}
	if dir == "." || dir == "/" {
		return nil
	}
	parts := strings.Split(dir, "/")
	dirs := make([]string, 0, len(parts))
	for i := range parts {
		dirs = append(dirs, strings.Join(parts[:i+1], "/"))
	}
	return dirs
}
