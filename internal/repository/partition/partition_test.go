package partition

import (
	"context"
	"testing"
	"time"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/quadtree"
)

type fakeClient struct {
	partitions map[string]apiclient.PartitionMetadata
	calls      int
}

func (f *fakeClient) LatestVersion(context.Context, string) (uint64, error) { return 1, nil }

func (f *fakeClient) GetPartitions(_ context.Context, _, _ string, ids []string, _ uint64, _ apiclient.RequestOptions) ([]apiclient.PartitionMetadata, error) {
	f.calls++
	var out []apiclient.PartitionMetadata
	for _, id := range ids {
		if m, ok := f.partitions[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeClient) GetQuadTree(context.Context, string, string, quadtree.TileKey, uint8, uint64, apiclient.RequestOptions) ([]apiclient.QuadTreeNode, error) {
	return nil, nil
}

func (f *fakeClient) GetBlob(context.Context, string, string, string, apiclient.RequestOptions) ([]byte, error) {
	return []byte("blob-data"), nil
}

func TestResolveFetchesAndCachesOnMiss(t *testing.T) {
	store := cachestore.NewMemoryStore(time.Hour)
	client := &fakeClient{partitions: map[string]apiclient.PartitionMetadata{
		"269": {PartitionID: "269", DataHandle: "H", Version: 108},
	}}
	repo := New("hrn:1", "layer1", store, client)

	rec, ok, err := repo.Resolve(context.Background(), "269", 108)
	if err != nil || !ok || rec.DataHandle != "H" {
		t.Fatalf("Resolve = %+v, %v, %v", rec, ok, err)
	}
	if client.calls != 1 {
		t.Fatalf("expected one backend call, got %d", client.calls)
	}

	// Second resolve should be served from cache.
	if _, _, err := repo.Resolve(context.Background(), "269", 108); err != nil {
		t.Fatal(err)
	}
	if client.calls != 1 {
		t.Fatalf("expected cache hit on second resolve, backend called %d times", client.calls)
	}
}

func TestRemoveIsIdempotentOnEmptyCache(t *testing.T) {
	store := cachestore.NewMemoryStore(time.Hour)
	repo := New("hrn:1", "layer1", store, &fakeClient{})

	ok, err := repo.Remove(context.Background(), "269", 108)
	if err != nil || !ok {
		t.Fatalf("Remove on empty cache = %v, %v", ok, err)
	}
}

func TestRemovePurgesPartitionAndBlobKeys(t *testing.T) {
	store := cachestore.NewMemoryStore(time.Hour)
	client := &fakeClient{partitions: map[string]apiclient.PartitionMetadata{
		"269": {PartitionID: "269", DataHandle: "H", Version: 108},
	}}
	repo := New("hrn:1", "layer1", store, client)

	if _, _, err := repo.Resolve(context.Background(), "269", 108); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.Remove(context.Background(), "269", 108)
	if err != nil || !ok {
		t.Fatalf("Remove = %v, %v", ok, err)
	}

	if _, found, _ := store.Get(context.Background(), "hrn:1::layer1::269::108::partition"); found {
		t.Error("partition key should have been removed")
	}
	if _, found, _ := store.Get(context.Background(), "hrn:1::layer1::H::Data"); found {
		t.Error("blob key should have been removed")
	}
}
