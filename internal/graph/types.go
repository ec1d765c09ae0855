package graph

// MainName is the node name used for the entry script in edges.
const MainName = "__main__"

type EdgeKind string

const (
	// EdgeImports is an import statement found in the importing file.
	EdgeImports EdgeKind = "imports"
	// EdgeRequested is a module named on the command line rather than imported.
	EdgeRequested EdgeKind = "requested"
)

// Module is one first-party file that ends up in the output.
type Module struct {
	Name        string `json:"name"`
	AbsPath     string `json:"abs_path"`
	RelPath     string `json:"rel_path"`
	IsPackage   bool   `json:"is_package"`
	Source      []byte `json:"-"`
	ContentHash string `json:"content_hash"`
}

// Edge is a directed import between two module names.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
	Line int      `json:"line,omitempty"`
}
