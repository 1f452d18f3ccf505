// Package app wires the demo catalogproxy binary together: config,
// logging, telemetry, the cache backend, the backend API client and the
// LayerClient façade, bound to a gin HTTP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	v1 "github.com/kosma/geocatalog/internal/infrastructure/http/v1"
	"github.com/kosma/geocatalog/internal/infrastructure/http/v1/handler"

	"github.com/kosma/geocatalog/internal/apiclient"
	"github.com/kosma/geocatalog/internal/cachestore"
	"github.com/kosma/geocatalog/internal/client"
	"github.com/kosma/geocatalog/internal/config"
	"github.com/kosma/geocatalog/internal/httpserver"
	"github.com/kosma/geocatalog/internal/logger"
	"github.com/kosma/geocatalog/internal/prefetch"
	"github.com/kosma/geocatalog/internal/protection"
	"github.com/kosma/geocatalog/internal/repository/blob"
	"github.com/kosma/geocatalog/internal/repository/partition"
	"github.com/kosma/geocatalog/internal/repository/quadtreerepo"
	"github.com/kosma/geocatalog/internal/scheduler"
	"github.com/kosma/geocatalog/internal/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(logger.Config{Level: cfg.Logger.Level})
	l.Info("app config", "cfg", cfg)

	ctx := context.Background()
	ctx = logger.WithLogger(ctx, l)

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		l.Fatal("failed to set up telemetry", "error", err)
	}

	store, closeStore, err := newCacheStore(cfg, l)
	if err != nil {
		l.Fatal("failed to initialize cache store", "error", err)
	}

	lookup := apiclient.NewCachedLookupService(
		apiclient.StaticLookupService{BaseURLTemplate: cfg.Catalog.LookupBaseURLTemplate},
		5*time.Minute,
	)
	apiClient := apiclient.NewHTTPClient(lookup, cfg.HTTP.Timeout, l)

	hrn, layer := cfg.Catalog.HRN, cfg.Catalog.Layer
	partitionRepo := partition.New(hrn, layer, store, apiClient)
	tileRepo := quadtreerepo.New(hrn, layer, store, apiClient)
	blobRepo := blob.New(hrn, layer, store, apiClient)
	protectionRegistry := protection.New(hrn, layer, store, tileRepo)
	sched := scheduler.New(int64(cfg.Scheduler.MaxConcurrency))
	prefetchEngine := prefetch.New(hrn, layer, apiClient, store, blobRepo, tileRepo, sched)

	facade := client.New(hrn, layer, apiClient, store, partitionRepo, tileRepo, blobRepo, protectionRegistry, prefetchEngine)

	validate := validator.New()
	h := handler.NewHandler(validate, facade)
	router := v1.NewRouter(h, l)

	httpServer := httpserver.New(cfg.HTTP.Server, router)

	l.Info("starting http server...", "address", httpServer.Addr)
	serverErr := httpServer.ListenAndServe()
	if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		l.Fatal("http server failed", "error", serverErr)
	}
	l.Info("http server stopped", "address", httpServer.Addr)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		l.Error("telemetry shutdown failed", "error", err)
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			l.Error("cache store shutdown failed", "error", err)
		}
	}

	l.Info("application shutdown completed")
}

func newCacheStore(cfg *config.Config, l logger.Logger) (cachestore.Store, func() error, error) {
	switch cfg.Cache.Backend {
	case "filesystem":
		s, err := cachestore.NewFilesystemStore(cfg.Cache.FilesystemDir, cfg.Cache.DefaultTTL)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "sqlite":
		s, err := cachestore.NewSQLiteStore(cfg.Cache.SQLitePath, cfg.Cache.DefaultTTL, l)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		s, err := cachestore.NewRedisStore(cachestore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return cachestore.NewMemoryStore(cfg.Cache.DefaultTTL), nil, nil
	}
}
