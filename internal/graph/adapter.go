package graph

import (
	"crypto/sha256"
	"encoding/hex"

	"scriptmerge/internal/resolver"
)

// FromTarget converts a resolved target plus its (possibly cleaned) source
// into a table entry.
func FromTarget(t resolver.Target, source []byte) *Module {
	return &Module{
		Name:        t.Name,
		AbsPath:     t.AbsPath,
		RelPath:     t.RelPath,
		IsPackage:   t.IsPackage,
		Source:      source,
		ContentHash: HashSource(source),
	}
}

func HashSource(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}
