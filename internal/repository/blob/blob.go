// Package blob implements the cache-or-fetch blob payload path (spec
// §4.E): the leaf every tile and partition resolution eventually calls
// into once a data handle is known.
package blob

import (
	"context"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/telemetry"
)

// Repository fetches and caches blob payloads for one catalog/layer.
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

// Get returns the payload for dataHandle, serving it from cache when
// present and otherwise fetching and caching it under default TTL.
func (r *Repository) Get(ctx context.Context, dataHandle string) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "blob.Get")
	defer span.End()
	log := logger.FromContext(ctx)

	key := cachekey.Blob(r.hrn, r.layer, dataHandle)
	if data, ok, err := r.store.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		metrics.CacheHits.WithLabelValues("blob").Inc()
		return data, nil
	}

	metrics.CacheMisses.WithLabelValues("blob").Inc()
	log.Debug("blob cache miss, fetching", "dataHandle", dataHandle)
	data, err := r.client.GetBlob(ctx, r.hrn, r.layer, dataHandle, apiclient.RequestOptions{})
	if err != nil {
		return nil, err
	}

	if err := r.store.Put(ctx, key, data, cachestore.DefaultTTL); err != nil {
		return nil, err
	}
	metrics.CacheStores.WithLabelValues("blob").Inc()
	return data, nil
}
