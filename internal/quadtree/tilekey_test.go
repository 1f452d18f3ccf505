package quadtree

import "testing"

func TestHereTileRoundTrip(t *testing.T) {
	cases := []TileKey{
		{Level: 0, Row: 0, Col: 0},
		{Level: 1, Row: 0, Col: 0},
		{Level: 1, Row: 1, Col: 1},
		{Level: 4, Row: 9, Col: 3},
		{Level: 10, Row: 517, Col: 42},
	}
	for _, tk := range cases {
		code := tk.ToHereTile()
		got, err := FromHereTile(code)
		if err != nil {
			t.Fatalf("FromHereTile(%d): %v", code, err)
		}
		if got != tk {
			t.Errorf("round trip %+v -> %d -> %+v", tk, code, got)
		}
	}
}

func TestHereTileStringRoundTrip(t *testing.T) {
	tk := TileKey{Level: 12, Row: 123, Col: 456}
	s := tk.HereTileString()
	got, err := ParseHereTileString(s)
	if err != nil {
		t.Fatalf("ParseHereTileString(%q): %v", s, err)
	}
	if got != tk {
		t.Errorf("got %+v, want %+v", got, tk)
	}
}

func TestRootHereTileIsOne(t *testing.T) {
	root := TileKey{Level: 0, Row: 0, Col: 0}
	if root.ToHereTile() != 1 {
		t.Errorf("root code = %d, want 1", root.ToHereTile())
	}
}

func TestParent(t *testing.T) {
	child := TileKey{Level: 3, Row: 5, Col: 6}
	parent, err := child.Parent()
	if err != nil {
		t.Fatal(err)
	}
	want := TileKey{Level: 2, Row: 2, Col: 3}
	if parent != want {
		t.Errorf("parent = %+v, want %+v", parent, want)
	}

	root := TileKey{}
	if _, err := root.Parent(); err == nil {
		t.Error("expected error for root.Parent()")
	}
}

func TestChangedLevelBy(t *testing.T) {
	tk := TileKey{Level: 5, Row: 20, Col: 9}
	up := tk.ChangedLevelBy(-2)
	if up != (TileKey{Level: 3, Row: 5, Col: 2}) {
		t.Errorf("up = %+v", up)
	}
	down := up.ChangedLevelBy(2)
	if down.Level != 5 || down.Row != 20 || down.Col != 8 {
		// the low 2 bits are lost going up then back down
		t.Errorf("down = %+v", down)
	}

	clamped := tk.ChangedLevelBy(-100)
	if clamped.Level != 0 {
		t.Errorf("clamped level = %d, want 0", clamped.Level)
	}
}

func TestIsAncestorOf(t *testing.T) {
	root := TileKey{Level: 2, Row: 1, Col: 1}
	child := TileKey{Level: 4, Row: 5, Col: 6}
	if !root.IsAncestorOf(child) {
		t.Error("expected root to be ancestor of child")
	}
	other := TileKey{Level: 4, Row: 0, Col: 0}
	if root.IsAncestorOf(other) {
		t.Error("did not expect root to be ancestor of unrelated tile")
	}
	if root.IsAncestorOf(root) == false {
		t.Error("a tile is its own ancestor at distance 0")
	}
}

func TestSubQuadkeyAndTileAtRoundTrip(t *testing.T) {
	root := TileKey{Level: 6, Row: 10, Col: 20}
	for depth := uint32(0); depth <= 4; depth++ {
		child := TileKey{
			Level: root.Level + depth,
			Row:   root.Row<<depth | 1,
			Col:   root.Col<<depth | 0,
		}
		if depth == 0 {
			child = root
		}
		sub := child.SubQuadkeyAt(depth)
		back := TileAt(root, depth, sub)
		if back != child {
			t.Errorf("depth=%d: TileAt(root, depth, SubQuadkeyAt) = %+v, want %+v", depth, back, child)
		}
	}
}

func TestRootSubQuadkeyIsOne(t *testing.T) {
	root := TileKey{Level: 7, Row: 3, Col: 4}
	if root.SubQuadkeyAt(0) != 1 {
		t.Errorf("root sub_quadkey = %d, want 1", root.SubQuadkeyAt(0))
	}
}
