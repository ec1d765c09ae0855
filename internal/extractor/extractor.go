package extractor

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/src-d/enry/v2"
)

// Extractor orchestrates import scanning using a language-specific extractor.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "python":
		langExt = &PythonExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// Language returns the tree-sitter grammar used by this extractor.
func (e *Extractor) Language() *sitter.Language {
	return e.langExtractor.GetLanguage()
}

// ExtractFromFile reads the unit's file and returns its import declarations.
func (e *Extractor) ExtractFromFile(unit SourceUnit) (iter.Seq[ImportDeclaration], error) {
	sourceCode, err := ReadSource(unit.Path)
	if err != nil {
		return nil, err
	}
	return e.ExtractFromSource(unit, sourceCode)
}

// ExtractFromSource parses sourceCode eagerly and walks it lazily. A syntax
// error fails the whole scan before any declaration is produced.
func (e *Extractor) ExtractFromSource(unit SourceUnit, sourceCode []byte) (iter.Seq[ImportDeclaration], error) {
	tree, err := e.Parse(unit.Path, sourceCode)
	if err != nil {
		return nil, err
	}
	return e.langExtractor.ExtractImports(tree.RootNode(), sourceCode, unit), nil
}

// Parse builds a syntax tree and rejects trees containing ERROR or MISSING nodes.
func (e *Extractor) Parse(path string, sourceCode []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, newParseError(path, root, sourceCode)
	}
	return tree, nil
}

// ReadSource reads a whole file, reporting failures as *IOError.
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return data, nil
}

// DetectLanguage guesses the language of a script from its name, shebang and content.
func DetectLanguage(path string, sourceCode []byte) string {
	return enry.GetLanguage(filepath.Base(path), sourceCode)
}

func newParseError(path string, root *sitter.Node, sourceCode []byte) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ParseError{Path: path, Line: 1, Column: 1}
	}
	near := bad.Content(sourceCode)
	if len(near) > 40 {
		near = near[:40]
	}
	return &ParseError{
		Path:   path,
		Line:   int(bad.StartPoint().Row) + 1,
		Column: int(bad.StartPoint().Column) + 1,
		Near:   near,
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}
