// Package httpserver builds the net/http.Server the demo binary listens
// on, following the teacher's pkg/http_server layout.
package httpserver

import (
	"net/http"

	"github.com/kosma/geocatalog/internal/config"
)

// New builds an http.Server bound to cfg, serving handler.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
