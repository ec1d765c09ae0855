package generator

import (
	"fmt"
	"regexp"
	"strings"

	"scriptmerge/internal/graph"
)

var mermaidUnsafe = regexp.MustCompile(`[^a-z0-9_]`)

// MermaidGenerator creates diagrams from a module table.
type MermaidGenerator struct{}

// GenerateImportGraph draws every module as a node and every recorded
// import as an edge. Requested modules hang off the entry with a dotted
// arrow.
func (m *MermaidGenerator) GenerateImportGraph(entryLabel string, table *graph.ModuleTable) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")

	if entryLabel == "" {
		entryLabel = graph.MainName
	}
	sb.WriteString(fmt.Sprintf("    %s[%q]\n", sanitizeMermaidID(graph.MainName), entryLabel))
	for _, mod := range table.Modules() {
		shape := "[%q]"
		if mod.IsPackage {
			shape = "[[%q]]"
		}
		sb.WriteString(fmt.Sprintf("    %s"+shape+"\n", sanitizeMermaidID(mod.Name), mod.Name))
	}

	for _, e := range table.Edges {
		arrow := "-->"
		if e.Kind == graph.EdgeRequested {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To)))
	}

	sb.WriteString("```\n")
	return sb.String()
}

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidUnsafe.ReplaceAllString(strings.ReplaceAll(v, ".", "__"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
