package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	tghttp "github.com/Strob0t/taskgate/internal/adapter/http"
	tgmcp "github.com/Strob0t/taskgate/internal/adapter/mcp"
	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/adapter/ws"
	"github.com/Strob0t/taskgate/internal/config"
	"github.com/Strob0t/taskgate/internal/middleware"
	"github.com/Strob0t/taskgate/internal/port/messagequeue"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"matcher", cfg.Router.Matcher,
		"approvals_backend", cfg.Approvals.Backend,
	)

	shutdownOtel, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownOtel(sctx)
	}()

	// --- Infrastructure ---
	in, closeInfra, err := connectInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeInfra()

	in.hub = ws.NewHub()
	defer in.hub.Close()

	// --- Services ---
	a, err := buildApp(ctx, cfg, in, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Router.Preload {
		a.router.Preload(ctx)
	}

	if in.queue != nil {
		cancelDecide, err := in.queue.Subscribe(ctx, messagequeue.SubjectApprovalDecide, a.approvals.HandleDecide)
		if err != nil {
			return fmt.Errorf("approval decision subscriber: %w", err)
		}
		defer cancelDecide()
	}

	// --- HTTP ---
	handlers := &tghttp.Handlers{
		Queries:   a.query,
		Approvals: a.approvals,
		Router:    a.router,
		Audit:     a.audit,
		Version:   version,
	}

	r := chi.NewRouter()
	r.Use(middleware.TraceID)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(tghttp.SecurityHeaders)
	r.Use(tghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tghttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", in.hub.HandleWS)

	if cfg.MCP.Enabled {
		mcpSrv := tgmcp.NewServer(
			tgmcp.ServerConfig{Name: "taskgate", Version: version, APIKey: cfg.MCP.APIKey},
			tgmcp.ServerDeps{Router: a.router, Dispatcher: a.dispatch, Approvals: a.approvals, Threshold: cfg.Router.Threshold},
		)
		r.Handle("/mcp", mcpSrv.Handler())
		slog.Info("mcp endpoint enabled", "path", "/mcp", "auth", cfg.MCP.APIKey != "")
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		tghttp.MountRoutes(r, handlers)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reloadSecretsOnHangup(gctx, a)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// reloadSecretsOnHangup re-reads TASKGATE_SECRET_* values on SIGHUP until
// ctx is done. A failed reload keeps the previous values.
func reloadSecretsOnHangup(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded")
		}
	}
}
