package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/dto"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/prefetch"
	"github.com/kosma/geocatalog/internal/quadtree"
)

func (h *Handler) PrefetchPartitions(c *gin.Context) {
	var req dto.PrefetchPartitionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	l := logger.FromContext(c.Request.Context())
	onProgress := func(p prefetch.Progress) {
		l.Debug("prefetch progress", "prefetched", p.PrefetchedPartitions, "total", p.TotalPartitionsToPrefetch, "bytes", p.BytesTransferred)
	}

	succeeded, err := h.client.PrefetchPartitions(c.Request.Context(), req.PartitionIDs, onProgress)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "prefetch complete", dto.PrefetchResponse{
		Succeeded: succeeded,
		Requested: len(req.PartitionIDs),
	})
}

func (h *Handler) PrefetchTiles(c *gin.Context) {
	var req dto.PrefetchTilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	tiles := make([]quadtree.TileKey, 0, len(req.Tiles))
	for _, s := range req.Tiles {
		t, err := quadtree.ParseHereTileString(s)
		if err != nil {
			h.RespondWithJSON(c, http.StatusBadRequest, "invalid here-tile: "+s, nil)
			return
		}
		tiles = append(tiles, t)
	}

	l := logger.FromContext(c.Request.Context())
	onProgress := func(p prefetch.Progress) {
		l.Debug("prefetch progress", "prefetched", p.PrefetchedPartitions, "total", p.TotalPartitionsToPrefetch, "bytes", p.BytesTransferred)
	}

	succeeded, err := h.client.PrefetchTiles(c.Request.Context(), tiles, onProgress)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	succeededStrs := make([]string, len(succeeded))
	for i, t := range succeeded {
		succeededStrs[i] = t.HereTileString()
	}
	h.RespondWithJSON(c, http.StatusOK, "prefetch complete", dto.PrefetchResponse{
		Succeeded: succeededStrs,
		Requested: len(req.Tiles),
	})
}
