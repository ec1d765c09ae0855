// Package cleaner strips comments and docstrings from Python source.
package cleaner

import (
	"bytes"
	"regexp"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"scriptmerge/internal/extractor"
)

// codingRe matches a PEP 263 source encoding declaration.
var codingRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-_.a-zA-Z0-9]+)`)

// Cleaner removes comments and string-only expression statements. The
// result of cleaning already-clean source is the source itself.
type Cleaner struct {
	ext *extractor.Extractor
}

// New creates a Python cleaner.
func New() (*Cleaner, error) {
	ext, err := extractor.NewExtractor("python")
	if err != nil {
		return nil, err
	}
	return &Cleaner{ext: ext}, nil
}

type edit struct {
	start, end uint32
	text       string
}

// Clean returns sourceCode without comments and docstrings. A shebang on the
// first line and an encoding declaration on the first two lines are kept.
// A block whose statements were all removed gets a single pass.
func (c *Cleaner) Clean(path string, sourceCode []byte) ([]byte, error) {
	tree, err := c.ext.Parse(path, sourceCode)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var edits []edit
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "comment":
			if !keepComment(n, sourceCode) {
				edits = append(edits, edit{start: n.StartByte(), end: n.EndByte()})
			}
			return
		case "module", "block":
			edits = append(edits, blockEdits(n, sourceCode)...)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(tree.RootNode())

	if len(edits) == 0 {
		return sourceCode, nil
	}
	return apply(sourceCode, edits), nil
}

func keepComment(n *sitter.Node, sourceCode []byte) bool {
	row := n.StartPoint().Row
	text := n.Content(sourceCode)
	if row == 0 && n.StartPoint().Column == 0 && len(text) > 1 && text[:2] == "#!" {
		return true
	}
	return row <= 1 && codingRe.MatchString(text)
}

// blockEdits removes docstring-like statements that sit alone on their
// lines. Statements sharing a line with other code are left alone so the
// surrounding syntax stays valid.
func blockEdits(block *sitter.Node, sourceCode []byte) []edit {
	var edits []edit
	statements := 0
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		statements++
		if isStringStatement(child) && aloneOnLine(child, sourceCode) {
			edits = append(edits, edit{start: child.StartByte(), end: child.EndByte()})
		}
	}
	if block.Type() == "block" && statements > 0 && len(edits) == statements {
		edits[0].text = "pass"
	}
	return edits
}

func isStringStatement(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	value := n.NamedChild(0)
	switch value.Type() {
	case "string", "concatenated_string":
		return !hasInterpolation(value)
	}
	return false
}

func hasInterpolation(n *sitter.Node) bool {
	if n.Type() == "interpolation" {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if hasInterpolation(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

func aloneOnLine(n *sitter.Node, sourceCode []byte) bool {
	for i := int(n.StartByte()) - 1; i >= 0 && sourceCode[i] != '\n'; i-- {
		if !isBlank(sourceCode[i]) {
			return false
		}
	}
	for i := int(n.EndByte()); i < len(sourceCode); i++ {
		switch c := sourceCode[i]; {
		case c == '\n' || c == '\r' || c == '#':
			return true
		case !isBlank(c):
			return false
		}
	}
	return true
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\f'
}

// apply performs the edits and then drops lines that an edit left blank.
// Lines no edit touched are copied verbatim.
func apply(sourceCode []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	var touched []int
	pos := uint32(0)
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		out.Write(sourceCode[pos:e.start])
		touched = append(touched, out.Len())
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(sourceCode[pos:])

	return dropBlankTouchedLines(out.Bytes(), touched)
}

func dropBlankTouchedLines(text []byte, touched []int) []byte {
	var out bytes.Buffer
	out.Grow(len(text))

	next := 0
	lineStart := 0
	for lineStart < len(text) {
		lineEnd := bytes.IndexByte(text[lineStart:], '\n')
		hasNewline := lineEnd >= 0
		if hasNewline {
			lineEnd += lineStart
		} else {
			lineEnd = len(text)
		}

		isTouched := false
		for next < len(touched) && touched[next] <= lineEnd {
			if touched[next] >= lineStart {
				isTouched = true
			}
			next++
		}

		line := text[lineStart:lineEnd]
		if isTouched {
			cr := bytes.HasSuffix(line, []byte("\r"))
			line = bytes.TrimRight(line, " \t\f\r")
			if len(line) == 0 {
				lineStart = lineEnd + 1
				continue
			}
			out.Write(line)
			if cr {
				out.WriteByte('\r')
			}
		} else {
			out.Write(line)
		}
		if hasNewline {
			out.WriteByte('\n')
		}
		lineStart = lineEnd + 1
	}
	return out.Bytes()
}
