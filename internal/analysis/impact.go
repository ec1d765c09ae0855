package analysis

import (
	"path/filepath"

	"scriptmerge/internal/graph"
)

// ImpactReport summarizes the modules affected by changed files. The entry
// script appears as graph.MainName.
type ImpactReport struct {
	DirectlyAffected   []string
	IndirectlyAffected []string
}

// Affected reports whether any module or the entry was touched.
func (r *ImpactReport) Affected() bool {
	return len(r.DirectlyAffected) > 0 || len(r.IndirectlyAffected) > 0
}

// Analyzer performs impact analysis on a module table.
type Analyzer struct {
	table *graph.ModuleTable
	entry string
}

// NewAnalyzer creates a new analyzer for the build of entry.
func NewAnalyzer(entry string, table *graph.ModuleTable) *Analyzer {
	return &Analyzer{table: table, entry: filepath.Clean(entry)}
}

// AnalyzeImpact maps changed file paths to the modules built from them and
// then walks importers transitively.
func (a *Analyzer) AnalyzeImpact(paths []string) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected:   []string{},
		IndirectlyAffected: []string{},
	}

	byPath := make(map[string]string, a.table.Len()+1)
	byPath[a.entry] = graph.MainName
	for _, m := range a.table.Modules() {
		byPath[filepath.Clean(m.AbsPath)] = m.Name
	}

	seen := make(map[string]bool)

	// 1. Find direct impacts
	for _, p := range paths {
		name, ok := byPath[filepath.Clean(p)]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		report.DirectlyAffected = append(report.DirectlyAffected, name)
	}

	// 2. Find indirect impacts (importers, transitively)
	queue := append([]string(nil), report.DirectlyAffected...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dep := range a.table.GetDependents(name) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
			queue = append(queue, dep)
		}
	}

	return report
}
