// Package prefetch implements bulk cache population for partition
// lists and tile subtrees (spec §4.G): resolve metadata in batches,
// fan blob downloads out under bounded concurrency, and report partial
// failure without aborting the run.
package prefetch

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachekey"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/catalogerr"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/repository/blob"
	"github.com/kosma/geocatalog/internal/repository/quadtreerepo"
	"github.com/kosma/geocatalog/internal/scheduler"
	"github.com/kosma/geocatalog/internal/telemetry"
)

const partitionBatchSize = 100

// Progress is reported after each partition or tile completes, success
// or failure; values are cumulative for the whole run.
type Progress struct {
	BytesTransferred          uint64
	TotalPartitionsToPrefetch int
	PrefetchedPartitions      int
}

// ProgressFunc receives one Progress update per completed item. The
// engine serializes calls: no two progress callbacks for the same run
// overlap.
type ProgressFunc func(Progress)

// Engine orchestrates PrefetchPartitions and PrefetchTiles for one
// catalog/layer.
type Engine struct {
	hrn   string
	layer string

	client apiclient.Client
	store  cachestore.Store
	blobs  *blob.Repository
	tiles  *quadtreerepo.Repository
	sched  *scheduler.Scheduler
}

// New builds an Engine bound to one catalog/layer.
func New(hrn, layer string, client apiclient.Client, store cachestore.Store, blobs *blob.Repository, tiles *quadtreerepo.Repository, sched *scheduler.Scheduler) *Engine {
	return &Engine{hrn: hrn, layer: layer, client: client, store: store, blobs: blobs, tiles: tiles, sched: sched}
}

// PrefetchPartitions downloads the blob payload for every partition ID
// in list, reporting cumulative progress through onProgress if it is
// non-nil. It returns the partition IDs that were successfully
// downloaded.
func (e *Engine) PrefetchPartitions(ctx context.Context, list []string, onProgress ProgressFunc) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "prefetch.PrefetchPartitions")
	defer span.End()
	log := logger.FromContext(ctx)

	if len(list) == 0 {
		return nil, catalogerr.New(catalogerr.InvalidArgument, "partition list must not be empty")
	}

	batchStart := time.Now()
	defer func() {
		metrics.PrefetchBatchDuration.WithLabelValues("partition").Observe(time.Since(batchStart).Seconds())
	}()

	version, err := e.client.LatestVersion(ctx, e.hrn)
	if err != nil {
		return nil, err
	}

	metas, err := e.resolvePartitionBatches(ctx, list, version)
	if err != nil {
		return nil, err
	}

	var (
		progressMu sync.Mutex
		bytesTotal uint64
		completed  int
		succeeded  []string
		succMu     sync.Mutex
	)
	report := func() {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		onProgress(Progress{
			BytesTransferred:          atomic.LoadUint64(&bytesTotal),
			TotalPartitionsToPrefetch: len(list),
			PrefetchedPartitions:      completed,
		})
	}

	group := e.sched.NewGroup(ctx)
	for _, meta := range metas {
		meta := meta
		group.Go(func(ctx context.Context) error {
			data, err := e.blobs.Get(ctx, meta.DataHandle)

			progressMu.Lock()
			completed++
			progressMu.Unlock()

			if err != nil {
				if catalogerr.Is(err, catalogerr.Cancelled) {
					return err
				}
				log.Warn("partition blob fetch failed", "partition", meta.PartitionID, "err", err)
				report()
				return nil
			}

			atomic.AddUint64(&bytesTotal, uint64(len(data)))
			metrics.PrefetchBytesTransferred.WithLabelValues("partition").Add(float64(len(data)))
			succMu.Lock()
			succeeded = append(succeeded, meta.PartitionID)
			succMu.Unlock()
			report()
			return nil
		})
	}
	for _, err := range group.Wait() {
		if catalogerr.Is(err, catalogerr.Cancelled) || err == context.Canceled {
			return nil, catalogerr.New(catalogerr.Cancelled, "prefetch cancelled")
		}
	}

	if len(succeeded) == 0 {
		return nil, catalogerr.New(catalogerr.Unknown, "No partitions were prefetched.")
	}
	return succeeded, nil
}

// resolvePartitionBatches fetches partition metadata in batches of at
// most partitionBatchSize, concurrently, and caches every resolved
// record under its partition key as a side effect.
func (e *Engine) resolvePartitionBatches(ctx context.Context, list []string, version uint64) ([]apiclient.PartitionMetadata, error) {
	var batches [][]string
	for i := 0; i < len(list); i += partitionBatchSize {
		end := i + partitionBatchSize
		if end > len(list) {
			end = len(list)
		}
		batches = append(batches, list[i:end])
	}

	var (
		mu   sync.Mutex
		all  []apiclient.PartitionMetadata
		errs []error
	)
	group := e.sched.NewGroup(ctx)
	for _, batch := range batches {
		batch := batch
		group.Go(func(ctx context.Context) error {
			metas, err := e.client.GetPartitions(ctx, e.hrn, e.layer, batch, version, apiclient.RequestOptions{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			for _, meta := range metas {
				if raw, mErr := json.Marshal(struct {
					DataHandle string `json:"dataHandle"`
					Version    uint64 `json:"version"`
				}{meta.DataHandle, meta.Version}); mErr == nil {
					_ = e.store.Put(ctx, cachekey.Partition(e.hrn, e.layer, meta.PartitionID, version), raw, cachestore.DefaultTTL)
				}
			}
			all = append(all, metas...)
			return nil
		})
	}
	group.Wait()

	if len(errs) > 0 && len(all) == 0 {
		return nil, errs[0]
	}
	return all, nil
}

// PrefetchTiles downloads the quad-tree and blob payload for every tile
// in list, batching network fetches by shared quad-tree root so sibling
// tiles under the same root cost one fetch.
func (e *Engine) PrefetchTiles(ctx context.Context, list []quadtree.TileKey, version uint64, onProgress ProgressFunc) ([]quadtree.TileKey, error) {
	ctx, span := telemetry.StartSpan(ctx, "prefetch.PrefetchTiles")
	defer span.End()
	log := logger.FromContext(ctx)

	if len(list) == 0 {
		return nil, catalogerr.New(catalogerr.InvalidArgument, "tile list must not be empty")
	}

	batchStart := time.Now()
	defer func() {
		metrics.PrefetchBatchDuration.WithLabelValues("tile").Observe(time.Since(batchStart).Seconds())
	}()

	byRoot := make(map[quadtree.TileKey][]quadtree.TileKey)
	for _, t := range list {
		root := t.ChangedLevelBy(-quadtreerepo.MaxDepth)
		byRoot[root] = append(byRoot[root], t)
	}

	var (
		progressMu sync.Mutex
		bytesTotal uint64
		completed  int
		succeeded  []quadtree.TileKey
		succMu     sync.Mutex
	)
	report := func() {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		onProgress(Progress{
			BytesTransferred:          atomic.LoadUint64(&bytesTotal),
			TotalPartitionsToPrefetch: len(list),
			PrefetchedPartitions:      completed,
		})
	}

	group := e.sched.NewGroup(ctx)
	for _, tiles := range byRoot {
		tiles := tiles
		group.Go(func(ctx context.Context) error {
			for _, tile := range tiles {
				res, ok, err := e.tiles.Resolve(ctx, tile, version)

				progressMu.Lock()
				completed++
				progressMu.Unlock()

				if err != nil {
					if catalogerr.Is(err, catalogerr.Cancelled) {
						return err
					}
					log.Warn("tile resolve failed", "tile", tile.HereTileString(), "err", err)
					report()
					continue
				}
				if !ok {
					report()
					continue
				}

				data, err := e.blobs.Get(ctx, res.DataHandle)
				if err != nil {
					log.Warn("tile blob fetch failed", "tile", tile.HereTileString(), "err", err)
					report()
					continue
				}

				atomic.AddUint64(&bytesTotal, uint64(len(data)))
				metrics.PrefetchBytesTransferred.WithLabelValues("tile").Add(float64(len(data)))
				succMu.Lock()
				succeeded = append(succeeded, tile)
				succMu.Unlock()
				report()
			}
			return nil
		})
	}
	for _, err := range group.Wait() {
		if catalogerr.Is(err, catalogerr.Cancelled) || err == context.Canceled {
			return nil, catalogerr.New(catalogerr.Cancelled, "prefetch cancelled")
		}
	}

	if len(succeeded) == 0 {
		return nil, catalogerr.New(catalogerr.Unknown, "No partitions were prefetched.")
	}
	return succeeded, nil
}
