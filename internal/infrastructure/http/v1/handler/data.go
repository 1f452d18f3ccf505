package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosma/geocatalog/internal/client"
	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/dto"
	"github.com/kosma/geocatalog/internal/quadtree"
)

// GetData resolves a partition ID or data handle to its payload.
func (h *Handler) GetData(c *gin.Context) {
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)
	req := client.DataRequest{
		PartitionID: c.Query("partitionId"),
		DataHandle:  c.Query("dataHandle"),
		Version:     version,
	}

	data, err := h.client.GetData(c.Request.Context(), req)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "got data", dto.GetDataResponse{
		DataHandle: req.DataHandle,
		SizeBytes:  len(data),
	})
}

// GetTileData resolves a here-tile path parameter to its payload.
func (h *Handler) GetTileData(c *gin.Context) {
	tile, err := quadtree.ParseHereTileString(c.Param("hereTile"))
	if err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid here-tile", nil)
		return
	}
	version, _ := strconv.ParseUint(c.Query("version"), 10, 64)

	data, err := h.client.GetTileData(c.Request.Context(), client.TileRequest{Tile: &tile, Version: version})
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "got tile data", dto.GetDataResponse{SizeBytes: len(data)})
}
