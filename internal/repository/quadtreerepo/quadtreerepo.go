// Package quadtreerepo implements the tile-addressed half of the
// catalog read path (spec §4.D): resolving a tile by walking its cached
// ancestor quad-trees outward, fetching the deepest missing one, and
// removing a tile without orphaning or prematurely discarding a
// quad-tree still serving sibling tiles.
package quadtreerepo

import (
	"context"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/telemetry"
)

// MaxDepth bounds both the ancestor walk during resolution and the
// depth of any quad-tree fetched from the backend.
const MaxDepth = 4

// Resolved is the result of resolving a tile: the owning quad-tree plus
// the tile's own data handle and version.
type Resolved struct {
	Index      *quadtree.Index
	DataHandle string
	Version    uint64
}

// Repository resolves and removes tile records for one catalog/layer.
type Repository struct {
	hrn   string
	layer string

	store  cachestore.Store
	client apiclient.Client
}

// New builds a Repository bound to a single catalog HRN and layer.
func New(hrn, layer string, store cachestore.Store, client apiclient.Client) *Repository {
	return &Repository{hrn: hrn, layer: layer, store: store, client: client}
}

// quadTreeKeyAt returns the cache key for the quad-tree rooted d levels
// above tile, and that root tile itself.
func (r *Repository) quadTreeKeyAt(tile quadtree.TileKey, d int, version uint64) (quadtree.TileKey, string) {
	root := tile.ChangedLevelBy(-d)
	return root, cachekey.QuadTree(r.hrn, r.layer, root, version, MaxDepth)
}

// Resolve finds the owning quad-tree for tile, walking self then up to
// MaxDepth ancestors in the cache, and falling back to a network fetch
// rooted MaxDepth levels above tile when no cached ancestor covers it.
func (r *Repository) Resolve(ctx context.Context, tile quadtree.TileKey, version uint64) (Resolved, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "quadtreerepo.Resolve")
	defer span.End()
	log := logger.FromContext(ctx)

	for d := 0; d <= MaxDepth; d++ {
		_, key := r.quadTreeKeyAt(tile, d, version)
		raw, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return Resolved{}, false, err
		}
		if !ok {
			continue
		}

		idx, err := quadtree.Load(raw)
		if err != nil {
			log.Warn("discarding corrupt cached quad-tree", "key", key, "err", err)
			continue
		}
		entry, found := idx.Find(tile)
		if !found {
			continue
		}
		metrics.CacheHits.WithLabelValues("quadtree").Inc()
		metrics.QuadTreeAncestorWalkDepth.Observe(float64(d))
		return Resolved{Index: idx, DataHandle: entry.DataHandle, Version: entry.Version}, true, nil
	}

	metrics.CacheMisses.WithLabelValues("quadtree").Inc()
	root, key := r.quadTreeKeyAt(tile, MaxDepth, version)
	log.Debug("quad-tree cache miss at every ancestor, fetching", "root", root.HereTileString())

	fetched, err := r.client.GetQuadTree(ctx, r.hrn, r.layer, root, MaxDepth, version, apiclient.RequestOptions{})
	if err != nil {
		return Resolved{}, false, err
	}

	nodes := make([]quadtree.Node, 0, len(fetched))
	for _, n := range fetched {
		nodes = append(nodes, quadtree.NewNode(n.Tile, n.DataHandle, n.Version))
	}
	idx, err := quadtree.Build(root, MaxDepth, nodes)
	if err != nil {
		return Resolved{}, false, err
	}
	if err := r.store.Put(ctx, key, idx.Raw(), cachestore.DefaultTTL); err != nil {
		return Resolved{}, false, err
	}
	metrics.CacheStores.WithLabelValues("quadtree").Inc()
	metrics.QuadTreeAncestorWalkDepth.Observe(float64(MaxDepth + 1))

	entry, found := idx.Find(tile)
	if !found {
		return Resolved{}, false, nil
	}
	return Resolved{Index: idx, DataHandle: entry.DataHandle, Version: entry.Version}, true, nil
}

// ResolveCached is Resolve restricted to ancestors already present in
// the cache: it never fetches from the network. Used by the protection
// registry, where pinning a not-yet-resolvable tile must fail rather
// than trigger a surprise network call.
func (r *Repository) ResolveCached(ctx context.Context, tile quadtree.TileKey, version uint64) (Resolved, string, bool, error) {
	for d := 0; d <= MaxDepth; d++ {
		_, key := r.quadTreeKeyAt(tile, d, version)
		raw, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return Resolved{}, "", false, err
		}
		if !ok {
			continue
		}
		idx, err := quadtree.Load(raw)
		if err != nil {
			continue
		}
		entry, found := idx.Find(tile)
		if !found {
			continue
		}
		return Resolved{Index: idx, DataHandle: entry.DataHandle, Version: entry.Version}, key, true, nil
	}
	return Resolved{}, "", false, nil
}

// RemoveTile removes tile's blob from the cache, then evicts the owning
// quad-tree record too if no sibling tile under it is still cached. A
// tile with no cached owning quad-tree is a no-op success.
func (r *Repository) RemoveTile(ctx context.Context, tile quadtree.TileKey, version uint64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "quadtreerepo.RemoveTile")
	defer span.End()

	var (
		owning    *quadtree.Index
		owningKey string
	)
	for d := 0; d <= MaxDepth; d++ {
		_, key := r.quadTreeKeyAt(tile, d, version)
		raw, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		idx, err := quadtree.Load(raw)
		if err != nil {
			continue
		}
		if _, found := idx.Find(tile); !found {
			continue
		}
		owning, owningKey = idx, key
		break
	}
	if owning == nil {
		return true, nil
	}

	entry, _ := owning.Find(tile)
	if entry.HasDataHandle {
		blobKey := cachekey.Blob(r.hrn, r.layer, entry.DataHandle)
		okBlob, err := r.store.RemoveKeysWithPrefix(ctx, blobKey)
		if err != nil {
			return false, err
		}
		if !okBlob {
			return false, nil
		}
	}

	anySiblingCached := false
	for _, sub := range owning.SubTiles() {
		e, found := owning.Find(sub)
		if !found || !e.HasDataHandle {
			continue
		}
		cached, err := r.store.Contains(ctx, cachekey.Blob(r.hrn, r.layer, e.DataHandle))
		if err != nil {
			return false, err
		}
		if cached {
			anySiblingCached = true
			break
		}
	}
	if anySiblingCached {
		return true, nil
	}

	okQuadTree, err := r.store.RemoveKeysWithPrefix(ctx, owningKey)
	if err != nil {
		return false, err
	}
	return okQuadTree, nil
}
