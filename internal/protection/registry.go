// Package protection implements reference-counted pinning of cached
// tiles against TTL eviction (spec §4.F): protecting a tile pins both
// its blob record and the quad-tree that currently resolves it.
package protection

import (
	"context"
	"sync"

	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/repository/quadtreerepo"
	"github.com/kosma/geocatalog/internal/telemetry"
)

// Registry holds refcounts over tile-data and quad-tree cache keys, and
// delegates the actual TTL exemption to the underlying Store's
// Protect/Release hooks. A single mutex guards both maps; the spec
// calls contention on this path negligible (small, human-initiated ops).
type Registry struct {
	hrn   string
	layer string

	store   cachestore.Store
	tileRes *quadtreerepo.Repository

	mu       sync.Mutex
	tileRefs map[string]int // blob cache key -> refcount
	quadRefs map[string]int // quad-tree cache key -> refcount
}

// New builds a Registry bound to one catalog/layer's tile resolver.
func New(hrn, layer string, store cachestore.Store, tileRes *quadtreerepo.Repository) *Registry {
	return &Registry{
		hrn:      hrn,
		layer:    layer,
		store:    store,
		tileRes:  tileRes,
		tileRefs: make(map[string]int),
		quadRefs: make(map[string]int),
	}
}

type resolved struct {
	blobKey string
	quadKey string
}

// Protect resolves each tile against the cache only (no network fetch)
// and, for every tile that resolves, pins both its blob key and its
// owning quad-tree key. The call is atomic: a tile that fails to
// resolve is simply skipped, but no pin is ever applied unless at
// least one tile in the batch resolved — per spec, a batch that
// resolves nothing still returns false with the registry untouched.
func (r *Registry) Protect(ctx context.Context, tiles []quadtree.TileKey, version uint64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "protection.Protect")
	defer span.End()

	var toPin []resolved
	for _, tile := range tiles {
		res, quadKey, ok, err := r.tileRes.ResolveCached(ctx, tile, version)
		if err != nil {
			return false, err
		}
		if !ok || res.DataHandle == "" {
			continue
		}
		toPin = append(toPin, resolved{blobKey: cachekey.Blob(r.hrn, r.layer, res.DataHandle), quadKey: quadKey})
	}
	if len(toPin) == 0 {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range toPin {
		r.tileRefs[p.blobKey]++
		r.quadRefs[p.quadKey]++
	}

	for _, p := range toPin {
		if err := r.store.Protect(ctx, []string{p.blobKey}); err != nil {
			return false, err
		}
		if err := r.store.Protect(ctx, []string{p.quadKey}); err != nil {
			return false, err
		}
	}
	metrics.ProtectionRegistrySize.WithLabelValues("blob").Set(float64(len(r.tileRefs)))
	metrics.ProtectionRegistrySize.WithLabelValues("quadtree").Set(float64(len(r.quadRefs)))
	return true, nil
}

// Release reverses Protect for each tile. It validates the whole batch
// before applying anything: if any tile fails to resolve to a
// currently-protected key, the call returns false and the registry is
// left unmodified (the Open Question's "all-or-nothing" resolution).
// When a quad-tree's refcount reaches zero, its TTL exemption is lifted
// too, so a subsequent read sees whichever state TTL already implies.
func (r *Registry) Release(ctx context.Context, tiles []quadtree.TileKey, version uint64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "protection.Release")
	defer span.End()

	toRelease := make([]resolved, 0, len(tiles))
	for _, tile := range tiles {
		res, quadKey, ok, err := r.tileRes.ResolveCached(ctx, tile, version)
		if err != nil {
			return false, err
		}
		if !ok || res.DataHandle == "" {
			return false, nil
		}
		blobKey := cachekey.Blob(r.hrn, r.layer, res.DataHandle)

		r.mu.Lock()
		protected := r.tileRefs[blobKey] > 0
		r.mu.Unlock()
		if !protected {
			return false, nil
		}

		toRelease = append(toRelease, resolved{blobKey: blobKey, quadKey: quadKey})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range toRelease {
		r.tileRefs[p.blobKey]--
		if r.tileRefs[p.blobKey] <= 0 {
			delete(r.tileRefs, p.blobKey)
			if err := r.store.Release(ctx, []string{p.blobKey}); err != nil {
				return false, err
			}
		}

		r.quadRefs[p.quadKey]--
		if r.quadRefs[p.quadKey] <= 0 {
			delete(r.quadRefs, p.quadKey)
			if err := r.store.Release(ctx, []string{p.quadKey}); err != nil {
				return false, err
			}
		}
	}
	metrics.ProtectionRegistrySize.WithLabelValues("blob").Set(float64(len(r.tileRefs)))
	metrics.ProtectionRegistrySize.WithLabelValues("quadtree").Set(float64(len(r.quadRefs)))
	return true, nil
}
