package storage

import (
	"context"
	"errors"
	"time"

	"scriptmerge/internal/graph"
)

// ErrNotFound is returned when no build has been recorded for an entry.
var ErrNotFound = errors.New("no recorded build")

// Manifest records what one build put into its artifact.
type Manifest struct {
	ID        int64
	Entry     string
	Mode      string
	CreatedAt time.Time
	Modules   []ModuleRecord
	Edges     []graph.Edge
}

type ModuleRecord struct {
	Name        string
	RelPath     string
	AbsPath     string
	IsPackage   bool
	Size        int
	ContentHash string
}

// NewManifest snapshots a module table. Sources are not kept, only sizes
// and hashes.
func NewManifest(entry, mode string, table *graph.ModuleTable) *Manifest {
	m := &Manifest{Entry: entry, Mode: mode, CreatedAt: time.Now().UTC()}
	for _, mod := range table.Modules() {
		m.Modules = append(m.Modules, ModuleRecord{
			Name:        mod.Name,
			RelPath:     mod.RelPath,
			AbsPath:     mod.AbsPath,
			IsPackage:   mod.IsPackage,
			Size:        len(mod.Source),
			ContentHash: mod.ContentHash,
		})
	}
	m.Edges = append(m.Edges, table.Edges...)
	return m
}

// ManifestStore persists build manifests.
type ManifestStore interface {
	// SaveBuild stores m and returns its id.
	SaveBuild(ctx context.Context, m *Manifest) (int64, error)

	// LatestBuild returns the most recent build of entry or ErrNotFound.
	LatestBuild(ctx context.Context, entry string) (*Manifest, error)

	Close() error
}

// ManifestDiff lists module names that differ between two builds.
type ManifestDiff struct {
	Added   []string
	Removed []string
	Changed []string
}

func (d ManifestDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// CompareManifests reports what changed from prev to cur. A nil prev
// means every module was added.
func CompareManifests(prev, cur *Manifest) ManifestDiff {
	var d ManifestDiff
	before := make(map[string]string)
	if prev != nil {
		for _, m := range prev.Modules {
			before[m.Name] = m.ContentHash
		}
	}
	seen := make(map[string]bool)
	for _, m := range cur.Modules {
		seen[m.Name] = true
		hash, ok := before[m.Name]
		switch {
		case !ok:
			d.Added = append(d.Added, m.Name)
		case hash != m.ContentHash:
			d.Changed = append(d.Changed, m.Name)
		}
	}
	if prev != nil {
		for _, m := range prev.Modules {
			if !seen[m.Name] {
				d.Removed = append(d.Removed, m.Name)
			}
		}
	}
	return d
}
