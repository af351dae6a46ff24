/*
 * Copyright 2025 Aztell Solucoes em Telefonia IP.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api exposes the monitor's HTTP surface: a status endpoint, the
// live WebSocket feed and the static dashboard assets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
	"github.com/aztell/callwatch/pkg/monitor"
	"github.com/aztell/callwatch/pkg/sink"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// HostStatus is one upstream host's connection state as reported by
// /api/status.
type HostStatus struct {
	Host  string `json:"host"`
	State string `json:"state"`
}

// Server is the HTTP front of the monitor. It implements
// lifecycle.Service.
type Server struct {
	addr       string
	publicDir  string
	store      *monitor.Store
	hub        *sink.Hub
	hosts      func() []HostStatus
	logger     logger.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server. hosts supplies the per-upstream
// connection states for the status endpoint; publicDir may be empty to
// disable static serving.
func NewServer(addr, publicDir string, store *monitor.Store, hub *sink.Hub, hosts func() []HostStatus, log logger.Logger) *Server {
	return &Server{
		addr:      addr,
		publicDir: publicDir,
		store:     store,
		hub:       hub,
		hosts:     hosts,
		logger:    log,
	}
}

// Start implements lifecycle.Service. It blocks until the listener fails
// or Stop shuts the server down.
func (s *Server) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.hub.ServeWS)

	if s.publicDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.publicDir)))
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           CommonMiddleware(s.logger)(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info().Str("addr", s.addr).Msg("HTTP server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop implements lifecycle.Service.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.store.Snapshot()

	status := struct {
		Status      string           `json:"status"`
		Hosts       []HostStatus     `json:"ami_hosts"`
		Counts      map[string]int   `json:"counts"`
		Subscribers int              `json:"subscribers"`
		Snapshot    *models.Snapshot `json:"snapshot"`
	}{
		Status: "ok",
		Hosts:  s.hosts(),
		Counts: map[string]int{
			"endpoints": len(snap.Endpoints),
			"trunks":    len(snap.Trunks),
			"sessions":  len(snap.Sessions),
		},
		Subscribers: s.hub.Subscribers(),
		Snapshot:    snap,
	}

	s.writeJSON(w, &status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.store.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}
