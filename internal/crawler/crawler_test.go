package crawler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptmerge/internal/extractor"
	"scriptmerge/internal/graph"
	"scriptmerge/internal/hook"
	"scriptmerge/internal/resolver"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestCrawler(t *testing.T, root string, opts ...Option) *Crawler {
	t.Helper()
	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)
	return NewCrawler(ext, resolver.NewResolver([]string{root}), opts...)
}

func names(table *graph.ModuleTable) []string {
	out := []string{}
	for _, m := range table.Modules() {
		out = append(out, m.Name)
	}
	return out
}

var diamond = map[string]string{
	"main.py":   "import app\n",
	"app.py":    "import left\nimport right\n",
	"left.py":   "import shared\nLEFT = 1\n",
	"right.py":  "import shared\n",
	"shared.py": "SHARED = 'only in shared'\n",
}

func TestCrawler_Build(t *testing.T) {
	t.Run("Package and submodule", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"hello.py":               "from greetings.greeting import Greeting\nprint(Greeting('Hello World').get_greeting())\n",
			"greetings/__init__.py":  "",
			"greetings/greeting.py":  "class Greeting:\n    pass\n",
			"greetings/unrelated.py": "X = 1\n",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "hello.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"greetings", "greetings.greeting"}, names(table))

		m, ok := table.Get("greetings.greeting")
		require.True(t, ok)
		assert.Equal(t, "greetings/greeting.py", m.RelPath)
		assert.Equal(t, "class Greeting:\n    pass\n", string(m.Source))
	})

	t.Run("Diamond is deduplicated in depth-first order", func(t *testing.T) {
		root := writeTree(t, diamond)
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "left", "shared", "right"}, names(table))
		assert.Equal(t, []string{"left", "right"}, table.GetDependents("shared"))
	})

	t.Run("Cycles terminate", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py": "import ping\n",
			"ping.py": "import pong\n",
			"pong.py": "import ping\n",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ping", "pong"}, names(table))
	})

	t.Run("Standard library is never added", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py":  "import os\nimport json.decoder\nfrom collections import abc\nimport local\n",
			"os.py":    "",
			"json.py":  "",
			"local.py": "",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"local"}, names(table))
	})

	t.Run("Requested and bare relative stdlib names are skipped", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py":          "from . import json\nfrom . import local\n",
			"json/__init__.py": "",
			"local.py":         "",
			"plugin.py":        "",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), []string{"json", "plugin"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"local", "plugin"}, names(table))
		for _, e := range table.Edges {
			assert.NotEqual(t, "json", e.To)
		}
	})

	t.Run("Relative imports inside packages", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py":             "import pkg.sub.leaf\n",
			"pkg/__init__.py":     "from . import helpers\n",
			"pkg/helpers.py":      "",
			"pkg/sub/__init__.py": "",
			"pkg/sub/leaf.py":     "from .. import top\nfrom .sibling import thing\n",
			"pkg/top.py":          "",
			"pkg/sub/sibling.py":  "",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"pkg", "pkg.helpers", "pkg.sub", "pkg.sub.leaf", "pkg.top", "pkg.sub.sibling",
		}, names(table))
	})

	t.Run("Extra modules", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py":   "import importlib\nimportlib.import_module('plugin')\n",
			"plugin.py": "import shared\n",
			"shared.py": "",
		})
		table, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), []string{"plugin", "nowhere"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"plugin", "shared"}, names(table))
		require.NotEmpty(t, table.Edges)
		assert.Equal(t, graph.Edge{From: graph.MainName, To: "plugin", Kind: graph.EdgeRequested}, table.Edges[0])
	})

	t.Run("Deterministic", func(t *testing.T) {
		root := writeTree(t, diamond)
		c := newTestCrawler(t, root)
		first, err := c.Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		second, err := c.Build(filepath.Join(root, "main.py"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, names(first), names(second))
		assert.Equal(t, first.Edges, second.Edges)
	})
}

func TestCrawler_Exclusions(t *testing.T) {
	root := writeTree(t, diamond)
	entry := filepath.Join(root, "main.py")

	t.Run("Shared descendant stays reachable", func(t *testing.T) {
		table, err := newTestCrawler(t, root).Build(entry, nil, []string{"left"})
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "right", "shared"}, names(table))
	})

	t.Run("Exclusive descendants disappear", func(t *testing.T) {
		table, err := newTestCrawler(t, root).Build(entry, nil, []string{"left", "right"})
		require.NoError(t, err)
		assert.Equal(t, []string{"app"}, names(table))
	})

	t.Run("Pattern is anchored at the start", func(t *testing.T) {
		table, err := newTestCrawler(t, root).Build(entry, nil, []string{"ap+"})
		require.NoError(t, err)
		assert.Empty(t, names(table))

		table, err = newTestCrawler(t, root).Build(entry, nil, []string{"pp"})
		require.NoError(t, err)
		assert.Len(t, names(table), 4)
	})

	t.Run("Invalid pattern", func(t *testing.T) {
		_, err := newTestCrawler(t, root).Build(entry, nil, []string{"("})
		assert.Error(t, err)
	})

	t.Run("Lookahead", func(t *testing.T) {
		pkgRoot := writeTree(t, map[string]string{
			"main.py":               "import greetings.greeting\nimport greetings.keep\n",
			"greetings/__init__.py": "",
			"greetings/greeting.py": "",
			"greetings/keep.py":     "",
		})
		table, err := newTestCrawler(t, pkgRoot).Build(filepath.Join(pkgRoot, "main.py"), nil, []string{`greetings(?!\.keep)`})
		require.NoError(t, err)
		assert.Equal(t, []string{"greetings", "greetings.keep"}, names(table))
	})
}

func TestCrawler_Hooks(t *testing.T) {
	root := writeTree(t, diamond)
	entry := filepath.Join(root, "main.py")

	t.Run("File event cancel", func(t *testing.T) {
		cancel := hook.Func(func(e hook.Event) {
			if ev, ok := e.(*hook.FileEvent); ok {
				ev.Cancel = true
			}
		})
		table, err := newTestCrawler(t, root, WithHook(cancel)).Build(entry, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("File event rewrites inputs", func(t *testing.T) {
		rewrite := hook.Func(func(e hook.Event) {
			if ev, ok := e.(*hook.FileEvent); ok {
				ev.Exclusions = append(ev.Exclusions, "right")
			}
		})
		table, err := newTestCrawler(t, root, WithHook(rewrite)).Build(entry, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "left", "shared"}, names(table))
	})

	t.Run("Module event cancel skips descent only", func(t *testing.T) {
		var seen []string
		cancelLeft := hook.Func(func(e hook.Event) {
			if ev, ok := e.(*hook.ModuleEvent); ok {
				seen = append(seen, ev.Unit.Module)
				if ev.Unit.Module == "left" {
					ev.Cancel = true
				}
			}
		})
		table, err := newTestCrawler(t, root, WithHook(cancelLeft)).Build(entry, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "left", "right", "shared"}, names(table))
		assert.Equal(t, []string{"", "app", "left", "right", "shared"}, seen)
	})

	t.Run("Module event exclusions apply below the unit", func(t *testing.T) {
		scoped := hook.Func(func(e hook.Event) {
			if ev, ok := e.(*hook.ModuleEvent); ok && ev.Unit.Module == "left" {
				ev.Exclusions = []string{"shared"}
			}
		})
		table, err := newTestCrawler(t, root, WithHook(scoped)).Build(entry, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "left", "right", "shared"}, names(table))
	})
}

type upperCleaner struct{ calls int }

func (u *upperCleaner) Clean(_ string, sourceCode []byte) ([]byte, error) {
	u.calls++
	return bytes.ToUpper(sourceCode), nil
}

func TestCrawler_Cleaner(t *testing.T) {
	root := writeTree(t, diamond)
	cleaner := &upperCleaner{}
	table, err := newTestCrawler(t, root, WithCleaner(cleaner)).Build(filepath.Join(root, "main.py"), nil, nil)
	require.NoError(t, err)

	// imports are read from the original text, so the whole graph is found
	assert.Equal(t, []string{"app", "left", "shared", "right"}, names(table))
	assert.Equal(t, 4, cleaner.calls)

	m, ok := table.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "SHARED = 'ONLY IN SHARED'\n", string(m.Source))
}

func TestCrawler_Errors(t *testing.T) {
	t.Run("Syntax error in a module", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"main.py":   "import broken\n",
			"broken.py": "def (:\n",
		})
		_, err := newTestCrawler(t, root).Build(filepath.Join(root, "main.py"), nil, nil)
		var parseErr *extractor.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, filepath.Join(root, "broken.py"), parseErr.Path)
	})

	t.Run("Missing entry", func(t *testing.T) {
		root := t.TempDir()
		_, err := newTestCrawler(t, root).Build(filepath.Join(root, "absent.py"), nil, nil)
		var ioErr *extractor.IOError
		assert.True(t, errors.As(err, &ioErr))
	})
}
