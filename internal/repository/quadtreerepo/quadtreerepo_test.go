package quadtreerepo

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/quadtree"
)

type fakeClient struct {
	nodes []apiclient.QuadTreeNode
	calls int
}

func (f *fakeClient) LatestVersion(context.Context, string) (uint64, error) { return 1, nil }

func (f *fakeClient) GetPartitions(context.Context, string, string, []string, uint64, apiclient.RequestOptions) ([]apiclient.PartitionMetadata, error) {
	return nil, nil
}

func (f *fakeClient) GetQuadTree(_ context.Context, _, _ string, _ quadtree.TileKey, _ uint8, _ uint64, _ apiclient.RequestOptions) ([]apiclient.QuadTreeNode, error) {
	f.calls++
	return f.nodes, nil
}

func (f *fakeClient) GetBlob(context.Context, string, string, string, apiclient.RequestOptions) ([]byte, error) {
	return nil, nil
}

func buildRootIndex(t *testing.T, root quadtree.TileKey, tiles map[quadtree.TileKey]string) *quadtree.Index {
	t.Helper()
	var nodes []quadtree.Node
	for tile, handle := range tiles {
		nodes = append(nodes, quadtree.NewNode(tile, handle, 1))
	}
	idx, err := quadtree.Build(root, MaxDepth, nodes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestResolveFetchesOnFullCacheMiss(t *testing.T) {
	tileA := quadtree.TileKey{Level: MaxDepth, Row: 0, Col: 0}

	store := cachestore.NewMemoryStore(time.Hour)
	client := &fakeClient{nodes: []apiclient.QuadTreeNode{{Tile: tileA, DataHandle: "HA", Version: 1}}}
	repo := New("hrn:1", "layer1", store, client)

	resolved, ok, err := repo.Resolve(context.Background(), tileA, 1)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v, %v", resolved, ok, err)
	}
	if resolved.DataHandle != "HA" {
		t.Fatalf("DataHandle = %q, want HA", resolved.DataHandle)
	}
	if client.calls != 1 {
		t.Fatalf("expected one fetch, got %d", client.calls)
	}

	want := []quadtree.TileKey{tileA}
	if diff := cmp.Diff(want, resolved.Index.SubTiles()); diff != "" {
		t.Errorf("SubTiles mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveTileKeepsQuadTreeWhileSiblingCached(t *testing.T) {
	root := quadtree.TileKey{Level: 0, Row: 0, Col: 0}
	tileA := quadtree.TileKey{Level: MaxDepth, Row: 0, Col: 0}
	tileB := quadtree.TileKey{Level: MaxDepth, Row: 0, Col: 1}
	const version = 1

	store := cachestore.NewMemoryStore(time.Hour)
	repo := New("hrn:1", "layer1", store, &fakeClient{})

	idx := buildRootIndex(t, root, map[quadtree.TileKey]string{tileA: "HA", tileB: "HB"})
	quadKey := cachekey.QuadTree("hrn:1", "layer1", root, version, MaxDepth)
	if err := store.Put(context.Background(), quadKey, idx.Raw(), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), cachekey.Blob("hrn:1", "layer1", "HA"), []byte("a"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), cachekey.Blob("hrn:1", "layer1", "HB"), []byte("b"), time.Hour); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.RemoveTile(context.Background(), tileA, version)
	if err != nil || !ok {
		t.Fatalf("RemoveTile(tileA) = %v, %v", ok, err)
	}

	if found, _ := store.Contains(context.Background(), cachekey.Blob("hrn:1", "layer1", "HA")); found {
		t.Error("tileA's blob should have been removed")
	}
	if found, _ := store.Contains(context.Background(), cachekey.Blob("hrn:1", "layer1", "HB")); !found {
		t.Error("tileB's blob should still be cached")
	}
	if found, _ := store.Contains(context.Background(), quadKey); !found {
		t.Error("quad-tree should be retained while a sibling is still cached")
	}
}

func TestRemoveTileEvictsQuadTreeOnceEveryTileGone(t *testing.T) {
	root := quadtree.TileKey{Level: 0, Row: 0, Col: 0}
	tileA := quadtree.TileKey{Level: MaxDepth, Row: 0, Col: 0}
	const version = 1

	store := cachestore.NewMemoryStore(time.Hour)
	repo := New("hrn:1", "layer1", store, &fakeClient{})

	idx := buildRootIndex(t, root, map[quadtree.TileKey]string{tileA: "HA"})
	quadKey := cachekey.QuadTree("hrn:1", "layer1", root, version, MaxDepth)
	if err := store.Put(context.Background(), quadKey, idx.Raw(), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), cachekey.Blob("hrn:1", "layer1", "HA"), []byte("a"), time.Hour); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.RemoveTile(context.Background(), tileA, version)
	if err != nil || !ok {
		t.Fatalf("RemoveTile(tileA) = %v, %v", ok, err)
	}

	if found, _ := store.Contains(context.Background(), quadKey); found {
		t.Error("quad-tree should be evicted once its last tile is gone")
	}
}

func TestRemoveTileWithNoOwningQuadTreeIsNoop(t *testing.T) {
	store := cachestore.NewMemoryStore(time.Hour)
	repo := New("hrn:1", "layer1", store, &fakeClient{})

	tile := quadtree.TileKey{Level: MaxDepth, Row: 3, Col: 7}
	ok, err := repo.RemoveTile(context.Background(), tile, 1)
	if err != nil || !ok {
		t.Fatalf("RemoveTile on empty cache = %v, %v", ok, err)
	}
}

func TestResolveCachedNeverFetches(t *testing.T) {
	store := cachestore.NewMemoryStore(time.Hour)
	client := &fakeClient{nodes: []apiclient.QuadTreeNode{{Tile: quadtree.TileKey{Level: MaxDepth}, DataHandle: "HA", Version: 1}}}
	repo := New("hrn:1", "layer1", store, client)

	tile := quadtree.TileKey{Level: MaxDepth, Row: 0, Col: 0}
	resolved, key, ok, err := repo.ResolveCached(context.Background(), tile, 1)
	if err != nil || ok {
		t.Fatalf("ResolveCached on empty cache = %+v, %q, %v, %v", resolved, key, ok, err)
	}
	if client.calls != 0 {
		t.Fatalf("ResolveCached must never call the backend, got %d calls", client.calls)
	}
}
