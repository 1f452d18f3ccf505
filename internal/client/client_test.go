package client

import (
	"context"
	"testing"
	"time"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/catalogerr"
	"github.com/kosma/geocatalog/internal/prefetch"
	"github.com/kosma/geocatalog/internal/protection"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/repository/blob"
	"github.com/kosma/geocatalog/internal/repository/partition"
	"github.com/kosma/geocatalog/internal/repository/quadtreerepo"
	"github.com/kosma/geocatalog/internal/scheduler"
)

type fakeClient struct {
	partitions map[string]apiclient.PartitionMetadata
	blobs      map[string][]byte
}

func (f *fakeClient) LatestVersion(context.Context, string) (uint64, error) { return 1, nil }

func (f *fakeClient) GetPartitions(_ context.Context, _, _ string, ids []string, _ uint64, _ apiclient.RequestOptions) ([]apiclient.PartitionMetadata, error) {
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

func (f *fakeClient) GetBlob(_ context.Context, _, _, dataHandle string, _ apiclient.RequestOptions) ([]byte, error) {
	if data, ok := f.blobs[dataHandle]; ok {
		return data, nil
	}
	return nil, catalogerr.New(catalogerr.NotFound, "no such blob")
}

func newTestClient(fc *fakeClient) *Client {
	hrn, layer := "hrn:1", "layer1"
	store := cachestore.NewMemoryStore(time.Hour)
	partitions := partition.New(hrn, layer, store, fc)
	tiles := quadtreerepo.New(hrn, layer, store, fc)
	blobs := blob.New(hrn, layer, store, fc)
	reg := protection.New(hrn, layer, store, tiles)
	sched := scheduler.New(4)
	pf := prefetch.New(hrn, layer, fc, store, blobs, tiles, sched)
	return New(hrn, layer, fc, store, partitions, tiles, blobs, reg, pf)
}

func TestGetDataRejectsMutuallyExclusiveFields(t *testing.T) {
	c := newTestClient(&fakeClient{})
	_, err := c.GetData(context.Background(), DataRequest{PartitionID: "p1", DataHandle: "h1"})
	if !catalogerr.Is(err, catalogerr.PreconditionFailed) {
		t.Fatalf("err = %v, want PreconditionFailed", err)
	}
}

func TestGetDataRejectsNeitherFieldSet(t *testing.T) {
	c := newTestClient(&fakeClient{})
	_, err := c.GetData(context.Background(), DataRequest{})
	if !catalogerr.Is(err, catalogerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestGetDataByDataHandleFetchesBlobDirectly(t *testing.T) {
	c := newTestClient(&fakeClient{blobs: map[string][]byte{"H": []byte("payload")}})
	data, err := c.GetData(context.Background(), DataRequest{DataHandle: "H"})
	if err != nil || string(data) != "payload" {
		t.Fatalf("GetData = %q, %v", data, err)
	}
}

func TestGetDataByPartitionResolvesThenFetches(t *testing.T) {
	c := newTestClient(&fakeClient{
		partitions: map[string]apiclient.PartitionMetadata{"p1": {PartitionID: "p1", DataHandle: "H", Version: 1}},
		blobs:      map[string][]byte{"H": []byte("payload")},
	})
	data, err := c.GetData(context.Background(), DataRequest{PartitionID: "p1", Version: 1})
	if err != nil || string(data) != "payload" {
		t.Fatalf("GetData = %q, %v", data, err)
	}
}

func TestGetDataByUnknownPartitionIsNotFound(t *testing.T) {
	c := newTestClient(&fakeClient{})
	_, err := c.GetData(context.Background(), DataRequest{PartitionID: "missing", Version: 1})
	if !catalogerr.Is(err, catalogerr.NotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestGetTileDataRejectsNilTile(t *testing.T) {
	c := newTestClient(&fakeClient{})
	_, err := c.GetTileData(context.Background(), TileRequest{})
	if !catalogerr.Is(err, catalogerr.PreconditionFailed) {
		t.Fatalf("err = %v, want PreconditionFailed", err)
	}
}

func TestMoveRendersSourceInert(t *testing.T) {
	c := newTestClient(&fakeClient{blobs: map[string][]byte{"H": []byte("payload")}})
	moved := c.Move()

	if _, err := c.GetData(context.Background(), DataRequest{DataHandle: "H"}); !catalogerr.Is(err, catalogerr.PreconditionFailed) {
		t.Fatalf("moved-from client err = %v, want PreconditionFailed", err)
	}
	if data, err := moved.GetData(context.Background(), DataRequest{DataHandle: "H"}); err != nil || string(data) != "payload" {
		t.Fatalf("moved client GetData = %q, %v", data, err)
	}
}
