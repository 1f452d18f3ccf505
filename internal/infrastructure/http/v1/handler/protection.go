package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/dto"
	"github.com/kosma/geocatalog/internal/quadtree"
)

func (h *Handler) parseTiles(c *gin.Context, raw []string) ([]quadtree.TileKey, bool) {
	tiles := make([]quadtree.TileKey, 0, len(raw))
	for _, s := range raw {
		t, err := quadtree.ParseHereTileString(s)
		if err != nil {
			h.RespondWithJSON(c, http.StatusBadRequest, "invalid here-tile: "+s, nil)
			return nil, false
		}
		tiles = append(tiles, t)
	}
	return tiles, true
}

func (h *Handler) Protect(c *gin.Context) {
	var req dto.ProtectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tiles, ok := h.parseTiles(c, req.Tiles)
	if !ok {
		return
	}

	applied, err := h.client.Protect(c.Request.Context(), tiles)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "protect applied", dto.ProtectionResponse{Applied: applied})
}

func (h *Handler) Release(c *gin.Context) {
	var req dto.ProtectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tiles, ok := h.parseTiles(c, req.Tiles)
	if !ok {
		return
	}

	applied, err := h.client.Release(c.Request.Context(), tiles)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "release applied", dto.ProtectionResponse{Applied: applied})
}
