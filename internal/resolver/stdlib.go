package resolver

import (
	_ "embed"
	"strings"
)

//go:embed stdlib.txt
var stdlibList string

var stdlibModules = func() map[string]bool {
	m := make(map[string]bool)
	for _, line := range strings.Split(stdlibList, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m[line] = true
	}
	return m
}()

// IsStdlib reports whether a dotted name belongs to the standard library,
// judged by its top-level component.
func IsStdlib(name string) bool {
	top, _, _ := strings.Cut(name, ".")
	return stdlibModules[top]
}
