// Package dto holds the request/response bodies the v1 HTTP surface
// decodes and encodes. None of these shapes are part of the spec; they
// exist only because the demo binary needs some wire format to drive
// the façade over HTTP.
package dto

// GetDataResponse wraps a successfully resolved payload.
type GetDataResponse struct {
	DataHandle string `json:"dataHandle"`
	SizeBytes  int    `json:"sizeBytes"`
}

// PrefetchPartitionsRequest lists the partitions to bulk-download.
type PrefetchPartitionsRequest struct {
	PartitionIDs []string `json:"partitionIds" validate:"required,min=1,dive,required"`
}

// PrefetchTilesRequest lists the tiles (here-tile strings) to bulk-download.
type PrefetchTilesRequest struct {
	Tiles []string `json:"tiles" validate:"required,min=1,dive,required"`
}

// PrefetchResponse reports the final outcome of a prefetch run.
type PrefetchResponse struct {
	Succeeded []string `json:"succeeded"`
	Requested int      `json:"requested"`
}

// ProtectionRequest lists the tiles (here-tile strings) to protect or release.
type ProtectionRequest struct {
	Tiles []string `json:"tiles" validate:"required,min=1,dive,required"`
}

// ProtectionResponse reports whether the protect/release call took effect.
type ProtectionResponse struct {
	Applied bool `json:"applied"`
}

// IsCachedResponse reports a single cache-membership check.
type IsCachedResponse struct {
	Cached bool `json:"cached"`
}

// RemoveResponse reports whether a cache removal succeeded.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}
