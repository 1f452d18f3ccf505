// Package cachekey derives the cache keys the rest of the module reads
// and writes under. Key stability is part of the external contract with
// the cache store: these templates must never change shape, only grow
// new callers.
package cachekey

import (
	"fmt"

	"github.com/kosma/geocatalog/internal/quadtree"
)

// Partition names the cache key for a resolved partition record:
// "<hrn>::<layer>::<partitionID>::<version>::partition". The same
// string doubles as the RemoveKeysWithPrefix argument that invalidates
// exactly this entry.
func Partition(hrn, layer, partitionID string, version uint64) string {
	return fmt.Sprintf("%s::%s::%s::%d::partition", hrn, layer, partitionID, version)
}

// Blob names the cache key for a raw blob payload:
// "<hrn>::<layer>::<dataHandle>::Data". Doubles as the
// RemoveKeysWithPrefix argument for this data handle.
func Blob(hrn, layer, dataHandle string) string {
	return fmt.Sprintf("%s::%s::%s::Data", hrn, layer, dataHandle)
}

// QuadTree names the cache key for a packed quad-tree index rooted at
// root: "<hrn>::<layer>::<here_tile>::<version>::<depth>::quadtree".
func QuadTree(hrn, layer string, root quadtree.TileKey, version uint64, depth uint8) string {
	return fmt.Sprintf("%s::%s::%s::%d::%d::quadtree", hrn, layer, root.HereTileString(), version, depth)
}
