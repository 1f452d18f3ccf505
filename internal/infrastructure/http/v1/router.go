package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/handler"
	"github.com/kosma/geocatalog/internal/logger"
)

// NewRouter builds the demo HTTP surface over one layer client façade.
func NewRouter(h *handler.Handler, l logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(withLogger(l))
	r.Use(ginZapLogger(l))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/data", h.GetData)
	v1.GET("/data/cached", h.IsCached)
	v1.GET("/tiles/:hereTile", h.GetTileData)
	v1.GET("/tiles/:hereTile/cached", h.IsCachedTile)
	v1.DELETE("/tiles/:hereTile", h.RemoveTileFromCache)
	v1.DELETE("/partitions/:partitionId", h.RemoveFromCache)
	v1.POST("/prefetch/partitions", h.PrefetchPartitions)
	v1.POST("/prefetch/tiles", h.PrefetchTiles)
	v1.POST("/protect", h.Protect)
	v1.POST("/release", h.Release)

	return r
}

func withLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), l))
		c.Next()
	}
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"size", c.Writer.Size(),
		)
	}
}
