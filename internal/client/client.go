// Package client implements the public façade binding the read layer's
// components into one surface (spec §4.H): GetData, PrefetchPartitions,
// PrefetchTiles, Protect, Release, IsCached and RemoveFromCache.
package client

import (
	"context"
	"encoding/json"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/catalogerr"
	"github.com/kosma/geocatalog/internal/prefetch"
	"github.com/kosma/geocatalog/internal/protection"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/repository/blob"
	"github.com/kosma/geocatalog/internal/repository/partition"
	"github.com/kosma/geocatalog/internal/repository/quadtreerepo"
	"github.com/kosma/geocatalog/internal/telemetry"
)

// DataRequest addresses content by partition ID or, exclusively, by a
// data handle already known to the caller.
type DataRequest struct {
	PartitionID string
	DataHandle  string
	Version     uint64 // 0 means "resolve the latest version"
}

// TileRequest addresses content by tile key.
type TileRequest struct {
	Tile    *quadtree.TileKey
	Version uint64 // 0 means "resolve the latest version"
}

// Client binds the quad-tree index, cache-key namer, repositories,
// protection registry and prefetch engine into the public operations
// consumers call. It is movable (see Move) but must not be copied by
// value: a copied Client and its source would both believe they own
// the same resources.
type Client struct {
	hrn   string
	layer string

	apiClient apiclient.Client
	store     cachestore.Store

	partitions *partition.Repository
	tiles      *quadtreerepo.Repository
	blobs      *blob.Repository
	protection *protection.Registry
	prefetch   *prefetch.Engine
}

// New wires a Client for one catalog/layer out of its components.
func New(hrn, layer string, apiClient apiclient.Client, store cachestore.Store, partitions *partition.Repository, tiles *quadtreerepo.Repository, blobs *blob.Repository, protectionRegistry *protection.Registry, prefetchEngine *prefetch.Engine) *Client {
	return &Client{
		hrn:        hrn,
		layer:      layer,
		apiClient:  apiClient,
		store:      store,
		partitions: partitions,
		tiles:      tiles,
		blobs:      blobs,
		protection: protectionRegistry,
		prefetch:   prefetchEngine,
	}
}

// Move transfers ownership of c's resources to a new *Client and
// leaves c inert: every subsequent call on c returns an error rather
// than touching shared state a new owner may already be mutating.
func (c *Client) Move() *Client {
	moved := &Client{
		hrn:        c.hrn,
		layer:      c.layer,
		apiClient:  c.apiClient,
		store:      c.store,
		partitions: c.partitions,
		tiles:      c.tiles,
		blobs:      c.blobs,
		protection: c.protection,
		prefetch:   c.prefetch,
	}
	*c = Client{}
	return moved
}

func (c *Client) inert() bool { return c.blobs == nil }

func (c *Client) resolveVersion(ctx context.Context, requested uint64) (uint64, error) {
	if requested != 0 {
		return requested, nil
	}
	return c.apiClient.LatestVersion(ctx, c.hrn)
}

// GetData resolves and returns the payload addressed by req.
func (c *Client) GetData(ctx context.Context, req DataRequest) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.GetData")
	defer span.End()

	if c.inert() {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	if req.PartitionID != "" && req.DataHandle != "" {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "partition_id and data_handle are mutually exclusive")
	}

	if req.DataHandle != "" {
		return c.blobs.Get(ctx, req.DataHandle)
	}
	if req.PartitionID == "" {
		return nil, catalogerr.New(catalogerr.InvalidArgument, "one of partition_id or data_handle is required")
	}

	version, err := c.resolveVersion(ctx, req.Version)
	if err != nil {
		return nil, err
	}
	resolved, ok, err := c.partitions.Resolve(ctx, req.PartitionID, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, catalogerr.New(catalogerr.NotFound, "partition not found")
	}
	return c.blobs.Get(ctx, resolved.DataHandle)
}

// GetTileData resolves and returns the payload addressed by req.
func (c *Client) GetTileData(ctx context.Context, req TileRequest) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.GetTileData")
	defer span.End()

	if c.inert() {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	if req.Tile == nil {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "tile is required")
	}

	version, err := c.resolveVersion(ctx, req.Version)
	if err != nil {
		return nil, err
	}
	resolved, ok, err := c.tiles.Resolve(ctx, *req.Tile, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, catalogerr.New(catalogerr.NotFound, "tile not found")
	}
	return c.blobs.Get(ctx, resolved.DataHandle)
}

// PrefetchPartitions bulk-populates the cache for partitionIDs.
func (c *Client) PrefetchPartitions(ctx context.Context, partitionIDs []string, onProgress prefetch.ProgressFunc) ([]string, error) {
	if c.inert() {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	return c.prefetch.PrefetchPartitions(ctx, partitionIDs, onProgress)
}

// PrefetchTiles bulk-populates the cache for tiles.
func (c *Client) PrefetchTiles(ctx context.Context, tiles []quadtree.TileKey, onProgress prefetch.ProgressFunc) ([]quadtree.TileKey, error) {
	if c.inert() {
		return nil, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	version, err := c.resolveVersion(ctx, 0)
	if err != nil {
		return nil, err
	}
	return c.prefetch.PrefetchTiles(ctx, tiles, version, onProgress)
}

// Protect pins tiles against TTL eviction.
func (c *Client) Protect(ctx context.Context, tiles []quadtree.TileKey) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	version, err := c.resolveVersion(ctx, 0)
	if err != nil {
		return false, err
	}
	return c.protection.Protect(ctx, tiles, version)
}

// Release unpins tiles previously passed to Protect.
func (c *Client) Release(ctx context.Context, tiles []quadtree.TileKey) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	version, err := c.resolveVersion(ctx, 0)
	if err != nil {
		return false, err
	}
	return c.protection.Release(ctx, tiles, version)
}

// IsCached reports whether req's data is currently cached, without
// triggering a network fetch.
func (c *Client) IsCached(ctx context.Context, req DataRequest) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	if req.DataHandle != "" {
		return c.store.Contains(ctx, cachekey.Blob(c.hrn, c.layer, req.DataHandle))
	}
	version, err := c.resolveVersion(ctx, req.Version)
	if err != nil {
		return false, err
	}
	key := cachekey.Partition(c.hrn, c.layer, req.PartitionID, version)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	var rec partition.Resolved
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, err
	}
	return c.store.Contains(ctx, cachekey.Blob(c.hrn, c.layer, rec.DataHandle))
}

// IsCachedTile reports whether req's tile is currently cached, without
// triggering a network fetch.
func (c *Client) IsCachedTile(ctx context.Context, req TileRequest) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	if req.Tile == nil {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "tile is required")
	}
	version, err := c.resolveVersion(ctx, req.Version)
	if err != nil {
		return false, err
	}
	resolved, _, ok, err := c.tiles.ResolveCached(ctx, *req.Tile, version)
	if err != nil || !ok {
		return false, err
	}
	return c.store.Contains(ctx, cachekey.Blob(c.hrn, c.layer, resolved.DataHandle))
}

// RemoveFromCache removes a partition's cache footprint.
func (c *Client) RemoveFromCache(ctx context.Context, partitionID string, version uint64) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	resolvedVersion, err := c.resolveVersion(ctx, version)
	if err != nil {
		return false, err
	}
	return c.partitions.Remove(ctx, partitionID, resolvedVersion)
}

// RemoveTileFromCache removes a tile's cache footprint, evicting its
// owning quad-tree too if no sibling tile remains cached under it.
func (c *Client) RemoveTileFromCache(ctx context.Context, tile quadtree.TileKey, version uint64) (bool, error) {
	if c.inert() {
		return false, catalogerr.New(catalogerr.PreconditionFailed, "client has been moved from")
	}
	resolvedVersion, err := c.resolveVersion(ctx, version)
	if err != nil {
		return false, err
	}
	return c.tiles.RemoveTile(ctx, tile, resolvedVersion)
}
