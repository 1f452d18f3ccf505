package cachekey

import (
	"testing"

	"github.com/kosma/geocatalog/internal/quadtree"
)

func TestKeysAreInjective(t *testing.T) {
	seen := map[string]string{}
	check := func(label, key string) {
		if other, ok := seen[key]; ok {
			t.Errorf("key collision: %q produced by both %q and %q", key, label, other)
		}
		seen[key] = label
	}

	root := quadtree.TileKey{Level: 4, Row: 1, Col: 2}
	otherRoot := quadtree.TileKey{Level: 4, Row: 1, Col: 3}

	check("partition/a", Partition("hrn:a", "layer1", "p1", 1))
	check("partition/b-version", Partition("hrn:a", "layer1", "p1", 2))
	check("partition/c-id", Partition("hrn:a", "layer1", "p2", 1))
	check("partition/d-layer", Partition("hrn:a", "layer2", "p1", 1))
	check("partition/e-hrn", Partition("hrn:b", "layer1", "p1", 1))

	check("blob/a", Blob("hrn:a", "layer1", "handle1"))
	check("blob/b", Blob("hrn:a", "layer1", "handle2"))

	check("quadtree/a", QuadTree("hrn:a", "layer1", root, 1, 4))
	check("quadtree/b-version", QuadTree("hrn:a", "layer1", root, 2, 4))
	check("quadtree/c-depth", QuadTree("hrn:a", "layer1", root, 1, 3))
	check("quadtree/d-root", QuadTree("hrn:a", "layer1", otherRoot, 1, 4))
}

func TestPartitionKeyIsStableAcrossCalls(t *testing.T) {
	a := Partition("hrn:a", "layer1", "p1", 7)
	b := Partition("hrn:a", "layer1", "p1", 7)
	if a != b {
		t.Errorf("Partition() not deterministic: %q != %q", a, b)
	}
}
