package apiclient

import "github.com/kosma/geocatalog/internal/quadtree"

// PartitionMetadata is one row of a partitions list response.
type PartitionMetadata struct {
	PartitionID string
	DataHandle  string
	Version     uint64
}

// QuadTreeNode is one decoded entry of a quad-tree JSON response, ready
// to be packed by quadtree.Build.
type QuadTreeNode struct {
	Tile       quadtree.TileKey
	DataHandle string
	Version    uint64
}

// RequestOptions carries passthrough fields present on every backend
// call in the original API but not interpreted by this module.
type RequestOptions struct {
	// BillingTag is forwarded verbatim to the backend when non-empty.
	BillingTag string
}
