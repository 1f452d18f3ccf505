// Package config parses this module's runtime configuration from the
// environment, following the teacher's pkg/config layout.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	// Config is the root configuration for the catalog proxy binary and
	// for wiring a LayerClient directly as a library.
	Config struct {
		Catalog   Catalog   `envPrefix:"CATALOG_"`
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Scheduler Scheduler `envPrefix:"SCHEDULER_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Redis     Redis     `envPrefix:"REDIS_"`
	}

	// Catalog identifies which HRN/layer this client instance reads.
	Catalog struct {
		HRN   string `env:"HRN,required"`
		Layer string `env:"LAYER,required"`
		// LookupBaseURLTemplate is the template the static lookup service
		// resolves every backend service with; "%s" is replaced with the
		// logical service name ("metadata", "query", "blob").
		LookupBaseURLTemplate string `env:"LOOKUP_BASE_URL_TEMPLATE" envDefault:"https://data.example.com/%s"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	// Cache configures the default TTL and backing store for cache
	// records (§3/§6 of the spec).
	Cache struct {
		Backend       string        `env:"BACKEND" envDefault:"memory"` // memory | sqlite | redis | filesystem
		SQLitePath    string        `env:"SQLITE_PATH" envDefault:"file:catalogcache.db?cache=shared&mode=memory"`
		FilesystemDir string        `env:"FILESYSTEM_DIR" envDefault:"./catalogcache"`
		DefaultTTL    time.Duration `env:"DEFAULT_TTL" envDefault:"24h"`
	}

	// Scheduler bounds background task concurrency (§5 of the spec).
	Scheduler struct {
		MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"16"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"geocatalog-read"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Redis struct {
		Enabled  bool          `env:"ENABLED" envDefault:"false"`
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}
)

// New loads configuration from the environment, optionally overlaid by
// a .env file in the working directory.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
