package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"scriptmerge/internal/extractor"
)

// Target is a module that was found on the search path.
type Target struct {
	Name      string `json:"name"`
	AbsPath   string `json:"abs_path"`
	RelPath   string `json:"rel_path"`
	IsPackage bool   `json:"is_package"`
}

// Unit returns the scanning context for the target's own imports.
func (t Target) Unit() extractor.SourceUnit {
	return extractor.SourceUnit{Path: t.AbsPath, Module: t.Name, IsPackage: t.IsPackage}
}

// Resolver maps dotted module names to files under an ordered list of roots.
type Resolver struct {
	roots []string
}

// NewResolver creates a resolver. Earlier roots take precedence.
func NewResolver(roots []string) *Resolver {
	return &Resolver{roots: append([]string(nil), roots...)}
}

// Resolve returns every candidate of decl that exists on the search path.
// Several hits are normal: a "from a import b" finds both a and, when b is a
// submodule, a.b. Names that resolve nowhere are dropped without error.
func (r *Resolver) Resolve(decl extractor.ImportDeclaration) []Target {
	var targets []Target
	for _, name := range Candidates(decl) {
		if t, ok := r.Find(name); ok {
			targets = append(targets, t)
		}
	}
	return targets
}

// Candidates expands a declaration into the dotted prefix chain of its module
// plus one name per imported item.
func Candidates(decl extractor.ImportDeclaration) []string {
	parts := splitName(decl.Module)
	base := strings.Join(parts, ".")

	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for i := range parts {
		add(strings.Join(parts[:i+1], "."))
	}
	for _, item := range decl.Names {
		item = strings.Join(splitName(item), ".")
		if item == "" {
			continue
		}
		if base == "" {
			add(item)
		} else {
			add(base + "." + item)
		}
	}
	return names
}

// Find locates one dotted name. For each root the package form is tried
// before the plain module form; the first root with a hit wins.
func (r *Resolver) Find(name string) (Target, bool) {
	if name == "" {
		return Target{}, false
	}
	base := strings.ReplaceAll(name, ".", "/")
	for _, root := range r.roots {
		for _, isPackage := range []bool{true, false} {
			rel := base + ".py"
			if isPackage {
				rel = base + "/__init__.py"
			}
			abs := filepath.Join(root, filepath.FromSlash(rel))
			if isRegularFile(abs) {
				return Target{Name: name, AbsPath: abs, RelPath: rel, IsPackage: isPackage}, true
			}
		}
	}
	return Target{}, false
}

func splitName(name string) []string {
	var parts []string
	for _, p := range strings.Split(name, ".") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
