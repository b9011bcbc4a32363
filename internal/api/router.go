// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the session document, terminals and detected ports over
// HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wingedpig/arbor/internal/api/handlers"
	"github.com/wingedpig/arbor/internal/api/middleware"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/ports"
	"github.com/wingedpig/arbor/internal/proxy"
	"github.com/wingedpig/arbor/internal/terminal"
	"github.com/wingedpig/arbor/internal/workspace"
)

// Dependencies holds everything the handlers use.
type Dependencies struct {
	Workspaces *workspace.Manager
	Ports      *ports.Monitor
	Terminals  *terminal.Launcher
	EventBus   events.Bus
}

// NewRouter creates the API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.PathPrefix("/preview/{wt}/{service}").Handler(proxy.NewPreview(deps.Ports))
	// Preflight requests are answered by the CORS middleware.
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	api := r.PathPrefix("/api/v1").Subrouter()

	ws := handlers.NewWorkspaceHandler(deps.Workspaces)
	api.HandleFunc("/workspaces", ws.List).Methods("GET")
	api.HandleFunc("/workspaces", ws.Create).Methods("POST")
	api.HandleFunc("/workspaces/last-opened", ws.LastOpened).Methods("GET")
	api.HandleFunc("/workspaces/open", ws.Open).Methods("POST")
	api.HandleFunc("/workspaces/{id}", ws.Get).Methods("GET")
	api.HandleFunc("/workspaces/{id}", ws.Update).Methods("PATCH")
	api.HandleFunc("/workspaces/{id}", ws.Delete).Methods("DELETE")
	api.HandleFunc("/workspaces/{id}/selection", ws.GetSelection).Methods("GET")
	api.HandleFunc("/workspaces/{id}/selection", ws.SetSelection).Methods("PUT")
	api.HandleFunc("/workspaces/{id}/scan", ws.Scan).Methods("POST")
	api.HandleFunc("/active-workspace", ws.GetActiveWorkspace).Methods("GET")
	api.HandleFunc("/active-workspace", ws.SetActiveWorkspace).Methods("PUT")
	api.HandleFunc("/last-opened", ws.SetLastOpened).Methods("PUT")

	wt := "/workspaces/{id}/worktrees/{wt}"
	api.HandleFunc("/workspaces/{id}/worktrees", ws.CreateWorktree).Methods("POST")
	api.HandleFunc(wt, ws.DeleteWorktree).Methods("DELETE")

	tg := wt + "/tab-groups/{tg}"
	api.HandleFunc(wt+"/tab-groups", ws.CreateTabGroup).Methods("POST")
	api.HandleFunc(wt+"/tab-groups/order", ws.ReorderTabGroups).Methods("PUT")
	api.HandleFunc(tg, ws.DeleteTabGroup).Methods("DELETE")

	tab := tg + "/tabs/{tab}"
	api.HandleFunc(tg+"/tabs", ws.CreateTab).Methods("POST")
	api.HandleFunc(tg+"/tabs/order", ws.ReorderTabs).Methods("PUT")
	api.HandleFunc(tab+"/move", ws.MoveTab).Methods("POST")
	api.HandleFunc(tab+"/cwd", ws.UpdateCwd).Methods("PUT")
	api.HandleFunc(tab, ws.DeleteTab).Methods("DELETE")

	if deps.Terminals != nil {
		th := handlers.NewTerminalHandler(deps.Terminals)
		api.HandleFunc("/terminals", th.List).Methods("GET")
		api.HandleFunc("/terminals", th.Start).Methods("POST")
		api.HandleFunc("/terminals/{id}", th.Stop).Methods("DELETE")
		api.HandleFunc("/terminals/{id}/output", th.Output).Methods("GET")
	}

	ph := handlers.NewPortHandler(deps.Ports)
	api.HandleFunc("/worktrees/{wt}/ports", ph.List).Methods("GET")
	api.HandleFunc("/worktrees/{wt}/ports/map", ph.Map).Methods("GET")

	eh := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eh.History).Methods("GET")
	api.HandleFunc("/events/ws", eh.WebSocket).Methods("GET")

	return r
}

// Server is the HTTP server.
type Server struct {
	addr   string
	router *mux.Router
	server *http.Server
	log    *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithTLS serves HTTPS using cfg. A nil cfg leaves the server on plain HTTP.
func WithTLS(cfg *tls.Config) ServerOption {
	return func(s *Server) {
		s.server.TLSConfig = cfg
	}
}

// NewServer creates a server listening on addr.
func NewServer(addr string, deps Dependencies, opts ...ServerOption) *Server {
	router := NewRouter(deps)
	s := &Server{
		addr:   addr,
		router: router,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.server.TLSConfig != nil {
		s.log.Info("API server listening", "addr", "https://"+ln.Addr().String())
		err = s.server.ServeTLS(ln, "", "")
	} else {
		s.log.Info("API server listening", "addr", "http://"+ln.Addr().String())
		err = s.server.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. Without a deadline on ctx it
// waits at most 30 seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
