package extractor

import (
	"iter"

	sitter "github.com/smacker/go-tree-sitter"
)

// SourceUnit is a file whose imports are being scanned, together with the
// module identity needed to interpret relative imports found inside it.
// The entry script has an empty Module and is never a package.
type SourceUnit struct {
	Path      string `json:"path"`
	Module    string `json:"module,omitempty"`
	IsPackage bool   `json:"is_package"`
}

// ImportDeclaration is one imported module as written in source.
// Names holds the items of a "from x import a, b" statement and is empty
// for plain "import x" forms.
type ImportDeclaration struct {
	Module string   `json:"module"`
	Names  []string `json:"names,omitempty"`
	Line   int      `json:"line,omitempty"`
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	Name() string
	ExtractImports(root *sitter.Node, sourceCode []byte, unit SourceUnit) iter.Seq[ImportDeclaration]
}
