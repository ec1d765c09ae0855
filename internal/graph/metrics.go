package graph

type Stats struct {
	Modules     int
	Packages    int
	Edges       int
	SourceBytes int
}

func (t *ModuleTable) Stats() Stats {
	var s Stats
	if t == nil {
		return s
	}
	for _, m := range t.Modules() {
		s.Modules++
		if m.IsPackage {
			s.Packages++
		}
		s.SourceBytes += len(m.Source)
	}
	s.Edges = len(t.Edges)
	return s
}
