package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptmerge/internal/graph"
	"scriptmerge/internal/resolver"
)

func testTable(sources map[string]string, order ...string) *graph.ModuleTable {
	table := graph.NewModuleTable()
	for _, name := range order {
		table.Add(graph.FromTarget(resolver.Target{
			Name:    name,
			AbsPath: "/src/" + name + ".py",
			RelPath: name + ".py",
		}, []byte(sources[name])))
		table.AddEdge(graph.Edge{From: graph.MainName, To: name, Kind: graph.EdgeImports, Line: 1})
	}
	return table
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, err = store.LatestBuild(ctx, "/src/hello.py")
	assert.ErrorIs(t, err, ErrNotFound)

	// 1. First build: a, b
	first := NewManifest("/src/hello.py", "inline", testTable(map[string]string{"a": "A", "b": "B"}, "a", "b"))
	id1, err := store.SaveBuild(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id1, first.ID)

	// 2. Second build: b changed, a removed, c added
	second := NewManifest("/src/hello.py", "archive", testTable(map[string]string{"b": "B2", "c": "C"}, "c", "b"))
	id2, err := store.SaveBuild(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	// Another entry must not shadow the latest build
	_, err = store.SaveBuild(ctx, NewManifest("/src/other.py", "inline", graph.NewModuleTable()))
	require.NoError(t, err)

	loaded, err := store.LatestBuild(ctx, "/src/hello.py")
	require.NoError(t, err)
	assert.Equal(t, id2, loaded.ID)
	assert.Equal(t, "archive", loaded.Mode)
	assert.Equal(t, second.CreatedAt.Unix(), loaded.CreatedAt.Unix())
	require.Len(t, loaded.Modules, 2)
	assert.Equal(t, "c", loaded.Modules[0].Name)
	assert.Equal(t, second.Modules, loaded.Modules)
	assert.Equal(t, second.Edges, loaded.Edges)

	diff := CompareManifests(first, loaded)
	assert.Equal(t, []string{"c"}, diff.Added)
	assert.Equal(t, []string{"a"}, diff.Removed)
	assert.Equal(t, []string{"b"}, diff.Changed)
	assert.False(t, diff.Empty())
}

func TestCompareManifests(t *testing.T) {
	m := NewManifest("/e.py", "inline", testTable(map[string]string{"a": "A"}, "a"))
	assert.True(t, CompareManifests(m, m).Empty())
	assert.Equal(t, []string{"a"}, CompareManifests(nil, m).Added)
	assert.Equal(t, 1, m.Modules[0].Size)
}
