package graph

// ModuleTable holds discovered modules keyed by dotted name. Iteration
// follows insertion order, which is the order of discovery.
type ModuleTable struct {
	modules map[string]*Module
	order   []string
	Edges   []Edge

	edgeSeen map[Edge]bool
}

// NewModuleTable creates an empty table.
func NewModuleTable() *ModuleTable {
	return &ModuleTable{
		modules:  make(map[string]*Module),
		edgeSeen: make(map[Edge]bool),
	}
}

// Add inserts m unless a module with the same name is already present.
// It reports whether m was inserted.
func (t *ModuleTable) Add(m *Module) bool {
	if m == nil || t.Has(m.Name) {
		return false
	}
	t.modules[m.Name] = m
	t.order = append(t.order, m.Name)
	return true
}

func (t *ModuleTable) Has(name string) bool {
	_, ok := t.modules[name]
	return ok
}

func (t *ModuleTable) Get(name string) (*Module, bool) {
	m, ok := t.modules[name]
	return m, ok
}

// Modules returns the modules in discovery order.
func (t *ModuleTable) Modules() []*Module {
	out := make([]*Module, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.modules[name])
	}
	return out
}

func (t *ModuleTable) Len() int {
	return len(t.order)
}

// AddEdge records an import. Repeated edges are stored once; the line of
// the first occurrence is kept.
func (t *ModuleTable) AddEdge(e Edge) {
	key := Edge{From: e.From, To: e.To, Kind: e.Kind}
	if t.edgeSeen[key] {
		return
	}
	t.edgeSeen[key] = true
	t.Edges = append(t.Edges, e)
}

// GetDependencies returns the names that from imports, in edge order.
func (t *ModuleTable) GetDependencies(from string) []string {
	var deps []string
	for _, edge := range t.Edges {
		if edge.From == from {
			deps = appendUnique(deps, edge.To)
		}
	}
	return deps
}

// GetDependents returns the names that import to, in edge order.
func (t *ModuleTable) GetDependents(to string) []string {
	var deps []string
	for _, edge := range t.Edges {
		if edge.To == to {
			deps = appendUnique(deps, edge.From)
		}
	}
	return deps
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}
