/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/config"
	"github.com/kentakayama/tracker-over-http/internal/tracker"
	"github.com/rs/cors"
)

// Server wires the HTTP listener and request handling stack of the local
// control API.
type Server struct {
	cfg     config.TrackerConfig
	handler *handler
	http    *http.Server
	logger  *log.Logger
}

// New constructs a Server on top of an already restored Tracker. fixes
// receives positions pushed by the host; records backs the debug dump.
func New(cfg config.TrackerConfig, tr *tracker.Tracker, fixes FixSink, records RecordStore) (*Server, error) {
	if tr == nil {
		return nil, errors.New("server: tracker is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	h, err := newHandler(tr, fixes, records, logger)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           withCORS(h.routes(), cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		handler: h,
		http:    httpSrv,
		logger:  logger,
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Printf("Run tracker control API on %s.", s.http.Addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown ends open status streams and gracefully takes down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.handler.close()
	return s.http.Shutdown(ctx)
}

// withCORS lets a local web UI on one of origins call the API. Without
// configured origins the router is served as is.
func withCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(next)
}
