// Package apiclient implements the backend API contracts the catalog
// read layer consumes (spec §6): version lookup, partition listing,
// quad-tree resolution and blob download. It defines no wire schema of
// its own beyond what's needed to decode those four responses.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kosma/geocatalog/internal/catalogerr"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/metrics"
	"github.com/kosma/geocatalog/internal/quadtree"
	"github.com/kosma/geocatalog/internal/telemetry"
)

const maxPartitionsPerBatch = 100

// Client is the set of backend operations the repositories consume.
type Client interface {
	LatestVersion(ctx context.Context, hrn string) (uint64, error)
	GetPartitions(ctx context.Context, hrn, layer string, partitionIDs []string, version uint64, opts RequestOptions) ([]PartitionMetadata, error)
	GetQuadTree(ctx context.Context, hrn, layer string, root quadtree.TileKey, depth uint8, version uint64, opts RequestOptions) ([]QuadTreeNode, error)
	GetBlob(ctx context.Context, hrn, layer, dataHandle string, opts RequestOptions) ([]byte, error)
}

// HTTPClient is the production Client, resolving base URLs through a
// LookupService and issuing plain net/http requests against them.
type HTTPClient struct {
	httpClient *http.Client
	lookup     LookupService
	log        logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds an HTTPClient with the given request timeout.
func NewHTTPClient(lookup LookupService, timeout time.Duration, l logger.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		lookup:     lookup,
		log:        l,
	}
}

func (c *HTTPClient) LatestVersion(ctx context.Context, hrn string) (uint64, error) {
	ctx, span := telemetry.StartSpan(ctx, "apiclient.LatestVersion")
	defer span.End()

	base, err := c.lookup.BaseURL(ctx, hrn, "metadata")
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.Network, "resolve metadata service", err)
	}

	var body struct {
		Version uint64 `json:"version"`
	}
	if err := c.doGET(ctx, "LatestVersion", base+"/metadata/versions/latest", nil, &body); err != nil {
		return 0, err
	}
	return body.Version, nil
}

func (c *HTTPClient) GetPartitions(ctx context.Context, hrn, layer string, partitionIDs []string, version uint64, opts RequestOptions) ([]PartitionMetadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "apiclient.GetPartitions")
	defer span.End()

	if len(partitionIDs) > maxPartitionsPerBatch {
		return nil, catalogerr.New(catalogerr.InvalidArgument, fmt.Sprintf("partition batch of %d exceeds the %d-partition API limit", len(partitionIDs), maxPartitionsPerBatch))
	}

	base, err := c.lookup.BaseURL(ctx, hrn, "query")
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.Network, "resolve query service", err)
	}

	q := url.Values{}
	for _, id := range partitionIDs {
		q.Add("partition", id)
	}
	q.Set("version", strconv.FormatUint(version, 10))
	if opts.BillingTag != "" {
		q.Set("billingTag", opts.BillingTag)
	}

	var body struct {
		Partitions []struct {
			Partition  string `json:"partition"`
			DataHandle string `json:"dataHandle"`
			Version    uint64 `json:"version"`
		} `json:"partitions"`
	}
	endpoint := fmt.Sprintf("%s/query/layers/%s/partitions?%s", base, layer, q.Encode())
	if err := c.doGET(ctx, "GetPartitions", endpoint, nil, &body); err != nil {
		return nil, err
	}

	out := make([]PartitionMetadata, 0, len(body.Partitions))
	for _, p := range body.Partitions {
		out = append(out, PartitionMetadata{PartitionID: p.Partition, DataHandle: p.DataHandle, Version: p.Version})
	}
	return out, nil
}

func (c *HTTPClient) GetQuadTree(ctx context.Context, hrn, layer string, root quadtree.TileKey, depth uint8, version uint64, opts RequestOptions) ([]QuadTreeNode, error) {
	ctx, span := telemetry.StartSpan(ctx, "apiclient.GetQuadTree")
	defer span.End()

	base, err := c.lookup.BaseURL(ctx, hrn, "query")
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.Network, "resolve query service", err)
	}

	q := url.Values{}
	q.Set("version", strconv.FormatUint(version, 10))
	if opts.BillingTag != "" {
		q.Set("billingTag", opts.BillingTag)
	}

	var body struct {
		SubQuads []struct {
			SubQuadkey string `json:"subQuadkey"`
			DataHandle string `json:"dataHandle"`
			Version    uint64 `json:"version"`
		} `json:"subQuads"`
		Parents []struct {
			Partition  string `json:"partition"`
			DataHandle string `json:"dataHandle"`
			Version    uint64 `json:"version"`
		} `json:"parentQuads"`
	}

	endpoint := fmt.Sprintf("%s/query/layers/%s/quadkeys/%s/depths/%d?%s", base, layer, root.HereTileString(), depth, q.Encode())
	if err := c.doGET(ctx, "GetQuadTree", endpoint, nil, &body); err != nil {
		return nil, err
	}

	nodes := make([]QuadTreeNode, 0, len(body.SubQuads)+len(body.Parents))
	for _, s := range body.SubQuads {
		sub, err := strconv.ParseUint(s.SubQuadkey, 10, 16)
		if err != nil {
			return nil, catalogerr.Wrap(catalogerr.Unknown, "Fail parsing response.", err)
		}
		depthFromRoot := subQuadkeyDepth(uint16(sub))
		nodes = append(nodes, QuadTreeNode{
			Tile:       quadtree.TileAt(root, depthFromRoot, uint16(sub)),
			DataHandle: s.DataHandle,
			Version:    s.Version,
		})
	}
	for _, p := range body.Parents {
		tile, err := quadtree.ParseHereTileString(p.Partition)
		if err != nil {
			return nil, catalogerr.Wrap(catalogerr.Unknown, "Fail parsing response.", err)
		}
		nodes = append(nodes, QuadTreeNode{Tile: tile, DataHandle: p.DataHandle, Version: p.Version})
	}
	return nodes, nil
}

func (c *HTTPClient) GetBlob(ctx context.Context, hrn, layer, dataHandle string, opts RequestOptions) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "apiclient.GetBlob")
	defer span.End()

	base, err := c.lookup.BaseURL(ctx, hrn, "blob")
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.Network, "resolve blob service", err)
	}

	endpoint := fmt.Sprintf("%s/blob/layers/%s/data/%s", base, layer, dataHandle)
	if opts.BillingTag != "" {
		endpoint += "?billingTag=" + url.QueryEscape(opts.BillingTag)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.Network, "build request", err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NetworkErrors.WithLabelValues("GetBlob").Inc()
		return nil, catalogerr.Wrap(catalogerr.Network, "blob request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.NetworkErrors.WithLabelValues("GetBlob").Inc()
		return nil, statusError(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.NetworkErrors.WithLabelValues("GetBlob").Inc()
		return nil, catalogerr.Wrap(catalogerr.Network, "read blob body", err)
	}
	return data, nil
}

func (c *HTTPClient) doGET(ctx context.Context, operation, endpoint string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return catalogerr.Wrap(catalogerr.Network, "build request", err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.log.Debug("backend request", "url", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NetworkErrors.WithLabelValues(operation).Inc()
		return catalogerr.Wrap(catalogerr.Network, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Error("backend request failed", "url", endpoint, "status", resp.StatusCode)
		metrics.NetworkErrors.WithLabelValues(operation).Inc()
		return statusError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.NetworkErrors.WithLabelValues(operation).Inc()
		return catalogerr.Wrap(catalogerr.Unknown, "Fail parsing response.", err)
	}
	return nil
}

func statusError(status int) error {
	if status == http.StatusNotFound {
		return catalogerr.New(catalogerr.NotFound, "resource not found").WithStatus(status)
	}
	if status >= 400 && status < 500 {
		return catalogerr.New(catalogerr.BadRequest, "upstream rejected the request").WithStatus(status)
	}
	return catalogerr.New(catalogerr.Network, "upstream request failed").WithStatus(status)
}

// subQuadkeyDepth recovers the Morton-coded depth of a sub-quadkey from
// its bit width: two bits per level after the leading 1 bit, the
// encoding quadtree.TileKey.SubQuadkeyAt produces.
func subQuadkeyDepth(sub uint16) uint32 {
	totalBits := 0
	for c := uint64(sub); c > 1; c >>= 1 {
		totalBits++
	}
	return uint32(totalBits / 2)
}
