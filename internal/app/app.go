// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the daemon's components together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/arbor/internal/api"
	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/logging"
	"github.com/wingedpig/arbor/internal/ports"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/terminal"
	"github.com/wingedpig/arbor/internal/watcher"
	"github.com/wingedpig/arbor/internal/workspace"
	"github.com/wingedpig/arbor/internal/worktree"
)

// App is the main application container.
type App struct {
	mu sync.Mutex

	config    *config.Config
	listener  net.Listener
	log       *slog.Logger
	eventBus  *events.MemoryBus
	store     *session.Store
	manager   *workspace.Manager
	monitor   *ports.Monitor
	launcher  *terminal.Launcher
	watcher   *watcher.SessionWatcher
	apiServer *api.Server
	serveErr  chan error

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds command-line overrides.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
	// Listener, when set, is served instead of host:port.
	Listener net.Listener
}

// New loads configuration and applies overrides. Call logging.Setup first.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	if opts.Debug {
		level = slog.LevelDebug
	}
	logging.Level.Set(level)

	return &App{
		config:   cfg,
		listener: opts.Listener,
		log:      slog.Default().With("component", "app"),
		serveErr: make(chan error, 1),
		done:     make(chan struct{}),
	}, nil
}

// Config returns the effective configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Initialize builds every component: event bus, session store, git provider,
// hierarchy model, port monitor, terminal launcher, session watcher and HTTP
// server, in that order.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	tlsConfig, err := api.TLSConfig(cfg.Server.TLSCert, cfg.Server.TLSKey, cfg.Server.TLSTailscale)
	if err != nil {
		return err
	}

	app.eventBus = events.NewMemoryBus(events.MemoryBusConfig{
		History: events.HistoryConfig{
			MaxEvents: cfg.Events.History.MaxEvents,
			MaxAge:    cfg.Events.History.MaxAge,
		},
	})

	app.store = session.NewStore(cfg.Session.Path)
	doc := app.store.Load()
	app.log.Info("session loaded", "path", cfg.Session.Path, "workspaces", len(doc.Workspaces))

	app.manager = workspace.NewManager(app.store, worktree.NewRealGitExecutor(), app.eventBus)

	app.monitor = ports.NewMonitor(ports.Config{
		Interval: cfg.Ports.PollInterval,
		Prober:   ports.NewLsofProber(cfg.Ports.LsofPath),
		Bus:      app.eventBus,
	})

	app.launcher = terminal.NewLauncher(cfg.Terminal.Shell, app.monitor, app.eventBus)

	if cfg.Session.Watch {
		w, err := watcher.NewSessionWatcher(app.store, app.eventBus, cfg.Session.Debounce)
		if err != nil {
			app.log.Warn("session file watch disabled", "error", err)
		} else {
			app.watcher = w
		}
	}

	app.apiServer = api.NewServer(cfg.Server.Addr(), api.Dependencies{
		Workspaces: app.manager,
		Ports:      app.monitor,
		Terminals:  app.launcher,
		EventBus:   app.eventBus,
	}, api.WithTLS(tlsConfig))
	return nil
}

// Start serves the API in the background.
func (app *App) Start(ctx context.Context) error {
	ln := app.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", app.config.Server.Addr())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", app.config.Server.Addr(), err)
		}
		app.listener = ln
	}
	go func() {
		app.serveErr <- app.apiServer.Serve(ln)
	}()
	return nil
}

// Addr returns the address the API is served on, once started.
func (app *App) Addr() net.Addr {
	if app.listener == nil {
		return nil
	}
	return app.listener.Addr()
}

// Run starts the app and blocks until a signal, ctx cancellation, Stop or a
// server failure, then shuts down.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		app.log.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		app.log.Info("context cancelled, shutting down")
	case <-app.done:
		app.log.Info("shutdown requested")
	case err := <-app.serveErr:
		runErr = err
	}

	if err := app.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the HTTP server, the session watcher, every terminal and
// port monitor, and finally the event bus.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var firstErr error
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(ctx); err != nil {
			app.log.Warn("error shutting down API server", "error", err)
			firstErr = err
		}
	}
	if app.watcher != nil {
		app.watcher.Close()
	}
	if app.launcher != nil {
		app.launcher.StopAll(ctx)
	}
	if app.monitor != nil {
		app.monitor.Cleanup()
	}
	if app.eventBus != nil {
		app.eventBus.Close()
	}
	app.log.Info("shutdown complete")
	return firstErr
}

// Stop asks Run to return.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
