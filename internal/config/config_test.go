package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv("SCRIPTMERGE_PYTHON_BINARY", "")
	t.Setenv("SCRIPTMERGE_CLEAN", "")
	t.Setenv("SCRIPTMERGE_COPY_SHEBANG", "")
}

func TestLoadConfig_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := write(t, dir, "scriptmerge.yaml", `
add_modules: [plugin]
exclude_modules: ["greetings*"]
add_paths: [lib, /opt/site]
python_binary: python3
clean: true
main_py: false
db: builds.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"plugin"}, cfg.AddModules)
	assert.Equal(t, []string{"greetings*"}, cfg.ExcludeModules)
	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/site"}, cfg.AddPaths)
	assert.Equal(t, "python3", cfg.PythonBinary)
	assert.True(t, cfg.Clean)
	require.NotNil(t, cfg.MainPy)
	assert.False(t, *cfg.MainPy)
	assert.Equal(t, "builds.db", cfg.DB)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadConfig_Pyproject(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	write(t, dir, "pyproject.toml", `
[project]
name = "hello"

[tool.scriptmerge]
add_modules = ["plugin"]
copy_shebang = true
executable = true
`)

	cfg, err := LoadConfig("", "", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"plugin"}, cfg.AddModules)
	assert.True(t, cfg.CopyShebang)
	assert.True(t, cfg.Executable)
	assert.Nil(t, cfg.MainPy)
	assert.Equal(t, filepath.Join(dir, "pyproject.toml"), cfg.Source)
}

func TestLoadConfig_Search(t *testing.T) {
	clearEnv(t)

	t.Run("YAML wins over pyproject", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "pyproject.toml", "[tool.scriptmerge]\nclean = false\n")
		write(t, dir, "scriptmerge.yml", "clean: true\n")
		cfg, err := LoadConfig("", dir)
		require.NoError(t, err)
		assert.True(t, cfg.Clean)
	})

	t.Run("Pyproject without table is skipped", func(t *testing.T) {
		first := t.TempDir()
		second := t.TempDir()
		write(t, first, "pyproject.toml", "[project]\nname = \"x\"\n")
		write(t, second, "scriptmerge.yaml", "output: out.py\n")
		cfg, err := LoadConfig("", first, second)
		require.NoError(t, err)
		assert.Equal(t, "out.py", cfg.Output)
	})

	t.Run("Nothing found", func(t *testing.T) {
		cfg, err := LoadConfig("", t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, cfg.Source)
		assert.Empty(t, cfg.AddModules)
	})

	t.Run("Explicit pyproject without table", func(t *testing.T) {
		path := write(t, t.TempDir(), "pyproject.toml", "[project]\nname = \"x\"\n")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("Broken file", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "scriptmerge.yaml", "add_modules: [unclosed\n")
		_, err := LoadConfig("", dir)
		assert.Error(t, err)
	})
}

func TestLoadConfig_Env(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := write(t, dir, "scriptmerge.yaml", "python_binary: python3\n")

	t.Setenv("SCRIPTMERGE_PYTHON_BINARY", "/usr/bin/python3.12")
	t.Setenv("SCRIPTMERGE_CLEAN", "true")
	t.Setenv("SCRIPTMERGE_COPY_SHEBANG", "1")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/python3.12", cfg.PythonBinary)
	assert.True(t, cfg.Clean)
	assert.True(t, cfg.CopyShebang)

	t.Setenv("SCRIPTMERGE_CLEAN", "sometimes")
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Schema(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"Unknown key", "scriptmerge.yaml", "add_module: [plugin]\n"},
		{"Wrong type", "scriptmerge.yaml", "clean: yes please\n"},
		{"List of numbers", "scriptmerge.yaml", "add_paths: [1, 2]\n"},
		{"Pyproject unknown key", "pyproject.toml", "[tool.scriptmerge]\ncompress = true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}

	t.Run("Empty file", func(t *testing.T) {
		path := write(t, t.TempDir(), "scriptmerge.yaml", "")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Source)
	})
}
