package quadtree

import (
	"testing"
)

func childOf(root TileKey, depth uint32, localRow, localCol uint64) TileKey {
	return TileKey{
		Level: root.Level + depth,
		Row:   root.Row<<depth | localRow,
		Col:   root.Col<<depth | localCol,
	}
}

func TestBuildFindRoundTrip(t *testing.T) {
	root := TileKey{Level: 8, Row: 100, Col: 50}
	parent1, _ := root.Parent()
	parent2, _ := parent1.Parent()

	nodes := []Node{
		NewNode(root, "root-handle", 42),
		NewNode(childOf(root, 1, 0, 0), "c00", 42),
		NewNode(childOf(root, 1, 1, 1), "c11", 43),
		NewNode(childOf(root, 4, 3, 7), "deep", 44),
		NewNode(parent1, "p1", 10),
		NewNode(parent2, "p2", 9),
	}

	idx, err := Build(root, 4, nodes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	loaded, err := Load(idx.Raw())
	if err != nil {
		t.Fatalf("Load(raw): %v", err)
	}

	for _, n := range nodes {
		e, ok := loaded.Find(n.Tile)
		if !ok {
			t.Errorf("Find(%+v): miss, want hit", n.Tile)
			continue
		}
		if e.DataHandle != n.DataHandle || e.Version != n.Version {
			t.Errorf("Find(%+v) = %+v, want handle=%s version=%d", n.Tile, e, n.DataHandle, n.Version)
		}
	}

	outside := TileKey{Level: 20, Row: 1, Col: 1}
	if _, ok := loaded.Find(outside); ok {
		t.Errorf("Find(%+v) = hit, want miss (outside covered set)", outside)
	}
}

func TestRawIsFixedPoint(t *testing.T) {
	root := TileKey{Level: 3, Row: 2, Col: 1}
	idx, err := Build(root, 2, []Node{NewNode(childOf(root, 1, 0, 1), "h", 1)})
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(idx.Raw())
	if err != nil {
		t.Fatal(err)
	}
	rebuilt, err := Build(loaded.Root(), loaded.Depth(), []Node{NewNode(childOf(root, 1, 0, 1), "h", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if string(rebuilt.Raw()) != string(idx.Raw()) {
		t.Error("raw -> load -> rebuild is not a byte-identical fixed point")
	}
}

func TestEntryWithNoFlagsIsMiss(t *testing.T) {
	root := TileKey{Level: 2, Row: 0, Col: 0}
	unresolvable := Node{Tile: childOf(root, 1, 0, 0)}
	idx, err := Build(root, 4, []Node{unresolvable})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.Find(unresolvable.Tile); ok {
		t.Error("expected miss for an entry with neither HasVersion nor HasDataHandle set")
	}
}

func TestLoadRejectsTruncatedBuffer(t *testing.T) {
	if _, err := Load([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated buffer")
	}
}

func TestLoadRejectsUnsortedSubEntries(t *testing.T) {
	root := TileKey{Level: 2, Row: 0, Col: 0}
	idx, err := Build(root, 2, []Node{
		NewNode(childOf(root, 1, 0, 0), "a", 1),
		NewNode(childOf(root, 1, 1, 1), "b", 2),
	})
	if err != nil {
		t.Fatal(err)
	}
	buf := append([]byte{}, idx.Raw()...)
	// Swap the two sub-entries to break ascending order.
	first := buf[headerSize : headerSize+subEntrySize]
	second := buf[headerSize+subEntrySize : headerSize+2*subEntrySize]
	swapped := append(append([]byte{}, second...), first...)
	copy(buf[headerSize:headerSize+2*subEntrySize], swapped)

	if _, err := Load(buf); err == nil {
		t.Error("expected error for unsorted sub-entries")
	}
}

func TestSubTilesEnumeratesDescendants(t *testing.T) {
	root := TileKey{Level: 5, Row: 4, Col: 4}
	nodes := []Node{
		NewNode(childOf(root, 1, 0, 0), "a", 1),
		NewNode(childOf(root, 2, 3, 1), "b", 1),
	}
	idx, err := Build(root, 4, nodes)
	if err != nil {
		t.Fatal(err)
	}
	got := idx.SubTiles()
	if len(got) != len(nodes) {
		t.Fatalf("SubTiles returned %d tiles, want %d", len(got), len(nodes))
	}
	want := map[TileKey]bool{}
	for _, n := range nodes {
		want[n.Tile] = true
	}
	for _, tk := range got {
		if !want[tk] {
			t.Errorf("unexpected tile %+v in SubTiles()", tk)
		}
	}
}
