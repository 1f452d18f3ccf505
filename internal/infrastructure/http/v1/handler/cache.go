package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosma/geocatalog/internal/client"
	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/dto"
	"github.com/kosma/geocatalog/internal/quadtree"
)

func (h *Handler) IsCached(c *gin.Context) {
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)
	req := client.DataRequest{
		PartitionID: c.Query("partitionId"),
		DataHandle:  c.Query("dataHandle"),
		Version:     version,
	}

	cached, err := h.client.IsCached(c.Request.Context(), req)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "checked cache", dto.IsCachedResponse{Cached: cached})
}

func (h *Handler) IsCachedTile(c *gin.Context) {
	tile, err := quadtree.ParseHereTileString(c.Param("hereTile"))
	if err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid here-tile", nil)
		return
	}
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)

	cached, err := h.client.IsCachedTile(c.Request.Context(), client.TileRequest{Tile: &tile, Version: version})
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "checked cache", dto.IsCachedResponse{Cached: cached})
}

func (h *Handler) RemoveFromCache(c *gin.Context) {
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)

	removed, err := h.client.RemoveFromCache(c.Request.Context(), c.Param("partitionId"), version)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "remove from cache", dto.RemoveResponse{Removed: removed})
}

func (h *Handler) RemoveTileFromCache(c *gin.Context) {
	tile, err := quadtree.ParseHereTileString(c.Param("hereTile"))
	if err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid here-tile", nil)
		return
	}
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)

	removed, err := h.client.RemoveTileFromCache(c.Request.Context(), tile, version)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "remove tile from cache", dto.RemoveResponse{Removed: removed})
}
