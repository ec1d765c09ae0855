package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileNames are the project files searched when no config path is given,
// in order. pyproject.toml is only used through its [tool.scriptmerge] table.
var FileNames = []string{"scriptmerge.yaml", "scriptmerge.yml", "pyproject.toml"}

type Config struct {
	AddModules     []string `yaml:"add_modules" toml:"add_modules"`
	ExcludeModules []string `yaml:"exclude_modules" toml:"exclude_modules"`
	AddPaths       []string `yaml:"add_paths" toml:"add_paths"`
	PythonBinary   string   `yaml:"python_binary" toml:"python_binary"`
	CopyShebang    bool     `yaml:"copy_shebang" toml:"copy_shebang"`
	Clean          bool     `yaml:"clean" toml:"clean"`
	Output         string   `yaml:"output" toml:"output"`
	Executable     bool     `yaml:"executable" toml:"executable"`
	MainPy         *bool    `yaml:"main_py" toml:"main_py"`
	InitPy         bool     `yaml:"init_py" toml:"init_py"`
	DB             string   `yaml:"db" toml:"db"`

	// Source is the file the values were read from, empty when none was found.
	Source string `yaml:"-" toml:"-"`
}

type pyproject struct {
	Tool struct {
		Scriptmerge map[string]any `toml:"scriptmerge"`
	} `toml:"tool"`
}

// LoadConfig reads path, or when path is empty the first project file
// found in searchDirs. Relative add_paths are taken relative to the file.
func LoadConfig(path string, searchDirs ...string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load the project file
	cfg := &Config{}
	if path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, fmt.Errorf("%s has no [tool.scriptmerge] table", path)
		}
		cfg = loaded
	} else {
		found, err := findConfig(searchDirs)
		if err != nil {
			return nil, err
		}
		if found != nil {
			cfg = found
		}
	}

	// 3. Override with Environment Variables if present
	if bin := os.Getenv("SCRIPTMERGE_PYTHON_BINARY"); bin != "" {
		cfg.PythonBinary = bin
	}
	if err := envBool("SCRIPTMERGE_CLEAN", &cfg.Clean); err != nil {
		return nil, err
	}
	if err := envBool("SCRIPTMERGE_COPY_SHEBANG", &cfg.CopyShebang); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfig(dirs []string) (*Config, error) {
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		for _, name := range FileNames {
			cfg, err := loadFile(filepath.Join(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if cfg != nil {
				return cfg, nil
			}
		}
	}
	return nil, nil
}

// loadFile returns nil without error for a pyproject.toml that has no
// scriptmerge table.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	isTOML := filepath.Ext(path) == ".toml"
	if isTOML {
		var project pyproject
		if err := toml.Unmarshal(data, &project); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if project.Tool.Scriptmerge == nil {
			return nil, nil
		}
		doc = project.Tool.Scriptmerge
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate(path, doc); err != nil {
		return nil, err
	}

	// Decode the validated document into the struct with the same codec.
	cfg := &Config{}
	if isTOML {
		err = remarshal(doc, cfg, toml.Marshal, toml.Unmarshal)
	} else {
		err = remarshal(doc, cfg, yaml.Marshal, yaml.Unmarshal)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.Source = path
	base := filepath.Dir(path)
	for i, p := range cfg.AddPaths {
		if !filepath.IsAbs(p) {
			cfg.AddPaths[i] = filepath.Join(base, p)
		}
	}
	return cfg, nil
}

func remarshal(doc map[string]any, dst *Config, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	return unmarshal(data, dst)
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}
