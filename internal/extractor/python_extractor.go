package extractor

import (
	"iter"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python import statements.
type PythonExtractor struct{}

func (p *PythonExtractor) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonExtractor) Name() string {
	return "python"
}

// ExtractImports walks the tree in source order, so imports nested in try,
// if and function bodies are reported where they appear.
func (p *PythonExtractor) ExtractImports(root *sitter.Node, sourceCode []byte, unit SourceUnit) iter.Seq[ImportDeclaration] {
	return func(yield func(ImportDeclaration) bool) {
		cursor := sitter.NewTreeCursor(root)
		defer cursor.Close()

		var visit func(*sitter.TreeCursor) bool
		visit = func(c *sitter.TreeCursor) bool {
			n := c.CurrentNode()
			switch n.Type() {
			case "import_statement":
				for _, decl := range p.plainImports(n, sourceCode) {
					if !yield(decl) {
						return false
					}
				}
				return true
			case "import_from_statement":
				return yield(p.fromImport(n, sourceCode, unit))
			case "future_import_statement", "comment", "string":
				return true
			}
			if c.GoToFirstChild() {
				if !visit(c) {
					return false
				}
				for c.GoToNextSibling() {
					if !visit(c) {
						return false
					}
				}
				c.GoToParent()
			}
			return true
		}
		visit(cursor)
	}
}

func (p *PythonExtractor) plainImports(node *sitter.Node, sourceCode []byte) []ImportDeclaration {
	var decls []ImportDeclaration
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		if name := importedName(node.Child(i), sourceCode); name != "" {
			decls = append(decls, ImportDeclaration{Module: name, Line: line})
		}
	}
	return decls
}

func (p *PythonExtractor) fromImport(node *sitter.Node, sourceCode []byte, unit SourceUnit) ImportDeclaration {
	decl := ImportDeclaration{
		Module: p.targetModule(node.ChildByFieldName("module_name"), sourceCode, unit),
		Names:  []string{},
		Line:   int(node.StartPoint().Row) + 1,
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		if name := importedName(node.Child(i), sourceCode); name != "" {
			decl.Names = append(decl.Names, name)
		}
	}
	return decl
}

// targetModule computes the absolute module a from-import refers to. A
// relative marker of depth d drops d trailing components from the unit's
// dotted name, one fewer when the unit is itself a package.
func (p *PythonExtractor) targetModule(moduleNode *sitter.Node, sourceCode []byte, unit SourceUnit) string {
	if moduleNode == nil {
		return unit.Module
	}
	if moduleNode.Type() != "relative_import" {
		return dottedName(moduleNode, sourceCode)
	}

	level := 0
	suffix := ""
	for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
		child := moduleNode.NamedChild(i)
		switch child.Type() {
		case "import_prefix":
			level = strings.Count(child.Content(sourceCode), ".")
		case "dotted_name":
			suffix = dottedName(child, sourceCode)
		}
	}

	return RelativeModule(unit, level, suffix)
}

// RelativeModule resolves a relative import of the given depth and optional
// module suffix against unit.
func RelativeModule(unit SourceUnit, level int, suffix string) string {
	if unit.IsPackage {
		level--
	}

	packageName := unit.Module
	if level > 0 {
		parts := strings.Split(unit.Module, ".")
		if level >= len(parts) {
			parts = nil
		} else {
			parts = parts[:len(parts)-level]
		}
		packageName = strings.Join(parts, ".")
	}

	switch {
	case suffix == "":
		return packageName
	case packageName == "":
		return suffix
	default:
		return packageName + "." + suffix
	}
}

func importedName(node *sitter.Node, sourceCode []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "dotted_name":
		return dottedName(node, sourceCode)
	case "aliased_import":
		return dottedName(node.ChildByFieldName("name"), sourceCode)
	}
	return ""
}

func dottedName(node *sitter.Node, sourceCode []byte) string {
	if node == nil {
		return ""
	}
	var parts []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" {
			parts = append(parts, child.Content(sourceCode))
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(node.Content(sourceCode))
	}
	return strings.Join(parts, ".")
}
