// Package pipeline wires search-path assembly, table building and emission
// into one build.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"scriptmerge/internal/cleaner"
	"scriptmerge/internal/crawler"
	"scriptmerge/internal/extractor"
	"scriptmerge/internal/generator"
	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
	"scriptmerge/internal/interpreter"
	"scriptmerge/internal/procenv"
	"scriptmerge/internal/resolver"
)

// Options controls one build. The zero value produces an inline script
// with the default shebang.
type Options struct {
	AddModules   []string
	AddPaths     []string
	PythonBinary string
	CopyShebang  bool
	Exclude      []string
	Clean        bool
	Archive      bool
	// IncludeMainPy wraps the entry as __main__.py. Unset means true for
	// archives and false for inline scripts.
	IncludeMainPy *bool
	IncludeInitPy bool
	Hook          hook.Func
	Logger        *log.Logger
	// Env is handed to the interpreter query. Nil uses procenv.New().
	Env *procenv.Env
	// Report, when set, receives stage timings and signals.
	Report *BuildReport
}

func (o Options) includeMainPy() bool {
	if o.IncludeMainPy != nil {
		return *o.IncludeMainPy
	}
	return o.Archive
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}

// Result is everything a build produced.
type Result struct {
	Entry    string
	Paths    []string
	Table    *graph.ModuleTable
	Artifact []byte
	Archive  bool
}

// Files lists the entry and every module file the artifact was built from.
func (r *Result) Files() []string {
	files := []string{r.Entry}
	for _, m := range r.Table.Modules() {
		files = append(files, m.AbsPath)
	}
	return files
}

// Generate builds entry and returns only the artifact bytes.
func Generate(ctx context.Context, entry string, opts Options) ([]byte, error) {
	res, err := Build(ctx, entry, opts)
	if err != nil {
		return nil, err
	}
	return res.Artifact, nil
}

// Build runs the whole merge. Nothing is written anywhere; the artifact is
// only returned once every stage succeeded.
func Build(ctx context.Context, entry string, opts Options) (*Result, error) {
	logger := opts.logger()
	report := opts.Report
	opts.Hook = hook.Chain(opts.Hook, traceHook(logger))

	absEntry, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry path %s: %w", entry, err)
	}
	entrySource, err := extractor.ReadSource(absEntry)
	if err != nil {
		return nil, err
	}
	if report != nil {
		report.Entry = absEntry
		report.Mode = "inline"
		if opts.Archive {
			report.Mode = "archive"
		}
	}
	if lang := extractor.DetectLanguage(absEntry, entrySource); lang != "" && lang != "Python" {
		logger.Warn("entry script does not look like Python", "path", absEntry, "language", lang)
		report.AddSignal("entry_not_python", "read_entry", "warning", "Entry script detected as "+lang+".", 0)
	}

	// 1. Search path
	stage := report.BeginStage("search_path")
	paths, err := searchPathStage(ctx, absEntry, opts)
	report.EndStage(stage, map[string]float64{"roots": float64(len(paths))}, err)
	if err != nil {
		return nil, err
	}
	logger.Debug("search path assembled", "roots", len(paths))

	var cl *cleaner.Cleaner
	if opts.Clean {
		if cl, err = cleaner.New(); err != nil {
			return nil, err
		}
	}

	// 2. Shebang and prelude events fire before any module is scanned
	emitter := newEmitter(absEntry, opts, cl)
	emitter.Prepare(entrySource)

	// 3. Module table
	stage = report.BeginStage("module_table")
	table, err := tableStage(absEntry, paths, opts, cl, logger)
	if err != nil {
		report.EndStage(stage, nil, err)
		return nil, err
	}
	stats := table.Stats()
	report.EndStage(stage, map[string]float64{
		"modules":      float64(stats.Modules),
		"packages":     float64(stats.Packages),
		"edges":        float64(stats.Edges),
		"source_bytes": float64(stats.SourceBytes),
	}, nil)
	if stats.Modules == 0 {
		report.AddSignal("no_modules", "module_table", "info", "No first-party modules were found; the artifact only wraps the entry.", 0)
	}

	// 4. Artifact
	stage = report.BeginStage("emit")
	artifact, err := emitter.Emit(table, entrySource)
	report.EndStage(stage, map[string]float64{"artifact_bytes": float64(len(artifact))}, err)
	if err != nil {
		return nil, err
	}

	logger.Info("merged",
		"entry", filepath.Base(absEntry),
		"modules", stats.Modules,
		"sources", humanize.Bytes(uint64(stats.SourceBytes)),
		"artifact", humanize.Bytes(uint64(len(artifact))),
	)
	return &Result{Entry: absEntry, Paths: paths, Table: table, Artifact: artifact, Archive: opts.Archive}, nil
}

// traceHook logs every event after the caller's hook has seen it.
func traceHook(logger *log.Logger) hook.Func {
	return func(e hook.Event) {
		canceled := false
		if c, ok := e.(hook.Canceler); ok {
			canceled = c.Canceled()
		}
		logger.Debug("hook event", "event", e.Name(), "canceled", canceled)
	}
}

func searchPathStage(ctx context.Context, entry string, opts Options) ([]string, error) {
	paths := []string{filepath.Dir(entry)}
	paths = append(paths, opts.AddPaths...)

	if opts.PythonBinary != "" {
		env := opts.Env
		if env == nil {
			env = procenv.New()
		}
		sysPath, err := interpreter.QuerySearchPath(ctx, opts.PythonBinary, env.Environ())
		if err != nil {
			return nil, err
		}
		paths = append(paths, sysPath...)
	}

	ev := &hook.PathsEvent{Entry: entry, Paths: paths, CopyShebang: opts.CopyShebang, Clean: opts.Clean}
	opts.Hook.Fire(ev)
	return slices.Clone(ev.Paths), nil
}

func tableStage(entry string, paths []string, opts Options, cl *cleaner.Cleaner, logger *log.Logger) (*graph.ModuleTable, error) {
	ext, err := extractor.NewExtractor("python")
	if err != nil {
		return nil, err
	}

	crawlOpts := []crawler.Option{crawler.WithHook(opts.Hook), crawler.WithLogger(logger)}
	if cl != nil {
		crawlOpts = append(crawlOpts, crawler.WithCleaner(cl))
	}

	c := crawler.NewCrawler(ext, resolver.NewResolver(paths), crawlOpts...)
	return c.Build(entry, opts.AddModules, opts.Exclude)
}

func newEmitter(entry string, opts Options, cl *cleaner.Cleaner) generator.Emitter {
	genOpts := generator.Options{
		Entry:         entry,
		CopyShebang:   opts.CopyShebang,
		Clean:         opts.Clean,
		IncludeMainPy: opts.includeMainPy(),
		IncludeInitPy: opts.IncludeInitPy,
		Hook:          opts.Hook,
	}
	if cl != nil {
		genOpts.Cleaner = cl
	}
	return generator.NewEmitter(opts.Archive, genOpts)
}

// WriteArtifact replaces path with data. The file is written next to its
// destination first so a failed write never leaves a truncated artifact.
func WriteArtifact(path string, data []byte, executable bool) error {
	mode := os.FileMode(0o644)
	if executable {
		mode = 0o755
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("failed to set output mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
