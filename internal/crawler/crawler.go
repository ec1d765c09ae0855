// Package crawler builds the table of first-party modules reachable from an
// entry script.
package crawler

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"scriptmerge/internal/extractor"
	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
	"scriptmerge/internal/resolver"
)

// Cleaner transforms module source before it is stored in the table.
type Cleaner interface {
	Clean(path string, sourceCode []byte) ([]byte, error)
}

// Crawler walks imports depth-first from an entry script.
type Crawler struct {
	extractor *extractor.Extractor
	resolver  *resolver.Resolver
	cleaner   Cleaner
	hook      hook.Func
	logger    *log.Logger
}

type Option func(*Crawler)

// WithCleaner stores cleaned source for every module. Imports are still
// scanned from the original bytes.
func WithCleaner(c Cleaner) Option {
	return func(cr *Crawler) { cr.cleaner = c }
}

func WithHook(f hook.Func) Option {
	return func(cr *Crawler) { cr.hook = f }
}

func WithLogger(l *log.Logger) Option {
	return func(cr *Crawler) {
		if l != nil {
			cr.logger = l
		}
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, res *resolver.Resolver, opts ...Option) *Crawler {
	c := &Crawler{
		extractor: ext,
		resolver:  res,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// scope is the exclusion state in force for one unit and its descendants.
type scope struct {
	patterns []string
	set      *resolver.ExclusionSet
}

func newScope(patterns []string) (scope, error) {
	set, err := resolver.NewExclusionSet(patterns)
	if err != nil {
		return scope{}, err
	}
	return scope{patterns: patterns, set: set}, nil
}

// Build scans entry, follows every first-party import transitively and then
// adds the explicitly requested modules. The entry itself is never part of
// the returned table.
func (c *Crawler) Build(entry string, addModules, exclusions []string) (*graph.ModuleTable, error) {
	table := graph.NewModuleTable()

	// 1. Let the hook rewrite the inputs
	ev := &hook.FileEvent{
		Path:       entry,
		AddModules: slices.Clone(addModules),
		Exclusions: slices.Clone(exclusions),
	}
	c.hook.Fire(ev)
	if ev.Cancel {
		c.logger.Debug("build canceled by hook", "path", ev.Path)
		return table, nil
	}

	sc, err := newScope(ev.Exclusions)
	if err != nil {
		return nil, err
	}

	// 2. Expand the entry script
	sourceCode, err := extractor.ReadSource(ev.Path)
	if err != nil {
		return nil, err
	}
	unit := extractor.SourceUnit{Path: ev.Path}
	if err := c.generateForUnit(table, graph.MainName, unit, sourceCode, sc); err != nil {
		return nil, err
	}

	// 3. Expand modules nobody imports statically
	for _, name := range ev.AddModules {
		decl := extractor.ImportDeclaration{Module: name, Names: []string{}}
		if err := c.generateForImport(table, graph.MainName, graph.EdgeRequested, decl, sc); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("module table built", "path", ev.Path, "modules", table.Len())
	return table, nil
}

func (c *Crawler) generateForUnit(table *graph.ModuleTable, from string, unit extractor.SourceUnit, sourceCode []byte, sc scope) error {
	ev := &hook.ModuleEvent{Unit: unit, Exclusions: slices.Clone(sc.patterns)}
	c.hook.Fire(ev)
	if ev.Cancel {
		c.logger.Debug("module scan canceled by hook", "module", from)
		return nil
	}
	if !slices.Equal(ev.Exclusions, sc.patterns) {
		next, err := newScope(ev.Exclusions)
		if err != nil {
			return err
		}
		sc = next
	}
	if ev.Unit.Path != unit.Path {
		redirected, err := extractor.ReadSource(ev.Unit.Path)
		if err != nil {
			return err
		}
		sourceCode = redirected
	}

	decls, err := c.extractor.ExtractFromSource(ev.Unit, sourceCode)
	if err != nil {
		return err
	}
	for decl := range decls {
		if resolver.IsStdlib(decl.Module) {
			continue
		}
		excluded, err := sc.set.Match(decl.Module)
		if err != nil {
			return err
		}
		if excluded {
			c.logger.Debug("import excluded", "module", decl.Module, "path", ev.Unit.Path)
			continue
		}
		if err := c.generateForImport(table, from, graph.EdgeImports, decl, sc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) generateForImport(table *graph.ModuleTable, from string, kind graph.EdgeKind, decl extractor.ImportDeclaration, sc scope) error {
	for _, target := range c.resolver.Resolve(decl) {
		// Requested modules and "from . import x" in the entry bypass the
		// declaration-level check, so every candidate is checked again.
		if resolver.IsStdlib(target.Name) {
			c.logger.Debug("standard library module skipped", "module", target.Name)
			continue
		}
		table.AddEdge(graph.Edge{From: from, To: target.Name, Kind: kind, Line: decl.Line})
		if table.Has(target.Name) {
			continue
		}

		sourceCode, err := extractor.ReadSource(target.AbsPath)
		if err != nil {
			return err
		}
		stored := sourceCode
		if c.cleaner != nil {
			if stored, err = c.cleaner.Clean(target.AbsPath, sourceCode); err != nil {
				return err
			}
		}
		table.Add(graph.FromTarget(target, stored))
		c.logger.Debug("module added", "module", target.Name, "path", target.RelPath)

		if err := c.generateForUnit(table, target.Name, target.Unit(), sourceCode, sc); err != nil {
			return err
		}
	}
	return nil
}
