// Package partition implements the partition-addressed half of the
// catalog read path (spec §4.C): resolving a partition ID to its data
// handle through cache-or-fetch, and removing a partition's cache
// footprint.
package partition

import (
	"context"
	"encoding/json"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/telemetry"
)

// Resolved is a partition's resolved data-handle record.
type Resolved struct {
	DataHandle string `json:"dataHandle"`
	Version    uint64 `json:"version"`
}

// Repository resolves and removes partition records for one catalog/layer.
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

// Resolve looks up partitionID under the partition cache key; on a miss
// it fetches the partition from the query API and populates the cache.
// ok is false only when the backend has no such partition.
func (r *Repository) Resolve(ctx context.Context, partitionID string, version uint64) (Resolved, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "partition.Resolve")
	defer span.End()
	log := logger.FromContext(ctx)

	key := cachekey.Partition(r.hrn, r.layer, partitionID, version)
	if raw, ok, err := r.store.Get(ctx, key); err != nil {
		return Resolved{}, false, err
	} else if ok {
		metrics.CacheHits.WithLabelValues("partition").Inc()
		var rec Resolved
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Resolved{}, false, err
		}
		return rec, true, nil
	}

	metrics.CacheMisses.WithLabelValues("partition").Inc()
	log.Debug("partition cache miss, fetching", "partition", partitionID, "version", version)
	metas, err := r.client.GetPartitions(ctx, r.hrn, r.layer, []string{partitionID}, version, apiclient.RequestOptions{})
	if err != nil {
		return Resolved{}, false, err
	}
	if len(metas) == 0 {
		return Resolved{}, false, nil
	}

	rec := Resolved{DataHandle: metas[0].DataHandle, Version: metas[0].Version}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Resolved{}, false, err
	}
	if err := r.store.Put(ctx, key, raw, cachestore.DefaultTTL); err != nil {
		return Resolved{}, false, err
	}
	metrics.CacheStores.WithLabelValues("partition").Inc()
	return rec, true, nil
}

// Remove purges the cached partition record and its blob payload. A
// partition absent from the cache is a no-op success, not a failure:
// the caller's invariant is "the cache no longer holds this data",
// which is already true.
func (r *Repository) Remove(ctx context.Context, partitionID string, version uint64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "partition.Remove")
	defer span.End()

	key := cachekey.Partition(r.hrn, r.layer, partitionID, version)
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	var rec Resolved
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, err
	}

	okPartition, err := r.store.RemoveKeysWithPrefix(ctx, key)
	if err != nil {
		return false, err
	}

	blobKey := cachekey.Blob(r.hrn, r.layer, rec.DataHandle)
	okBlob, err := r.store.RemoveKeysWithPrefix(ctx, blobKey)
	if err != nil {
		return false, err
	}

	return okPartition && okBlob, nil
}
