package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ashureev/coin-gallery/internal/api"
	"github.com/ashureev/coin-gallery/internal/auth"
	"github.com/ashureev/coin-gallery/internal/config"
	"github.com/ashureev/coin-gallery/internal/edit"
	"github.com/ashureev/coin-gallery/internal/health"
	"github.com/ashureev/coin-gallery/internal/identity"
	"github.com/ashureev/coin-gallery/internal/live"
	"github.com/ashureev/coin-gallery/internal/metadata"
	"github.com/ashureev/coin-gallery/internal/store"
	"github.com/ashureev/coin-gallery/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	grpcProbeInterval = 15 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gallery web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(os.Stdout)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	pages, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	md := metadata.NewStore(cfg.MetadataFile)
	if _, err := md.Load(); err != nil {
		slog.Warn("Metadata unreadable, pages will render without captions", "error", err, "path", cfg.MetadataFile)
	}

	if cfg.EditPassword == "" {
		slog.Warn("EDIT_PASSWORD not set, editing is disabled")
	}

	// Initialize services.
	hub := live.NewHub()
	gate := auth.NewGate(cfg.EditPassword, cfg.LoginFailureDelay)
	sessions := identity.NewManager(repo, cfg.SessionTTL, cfg.IsDevelopment())
	limiter := api.NewLoginLimiter(cfg.LoginRatePerMinute)
	checks := api.Checks(repo, md)

	// Initialize handlers.
	router := api.NewRouter(api.Routes{
		Gallery: api.NewGalleryHandler(api.NewHandler(cfg.PicturesDir, md, pages)),
		Edit:    api.NewEditHandler(gate, edit.NewService(md, gate, hub), sessions, limiter),
		Health: api.NewHealthHandler(checks),
		Live:   live.NewWebSocketHandler(hub, cfg.IsDevelopment()),
		Static: web.StaticHandler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout for the live update stream
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		// Hijacked WebSocket connections are not tracked by Shutdown.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	sweeperDone := store.StartSweeper(gctx, repo, cfg.SessionTTL, cfg.SessionSweepInterval)
	g.Go(func() error {
		<-sweeperDone
		return nil
	})

	if cfg.WatchMetadata {
		g.Go(func() error {
			err := live.WatchFile(gctx, cfg.MetadataFile, live.DefaultDebounce, hub.MetadataReloaded)
			if err != nil {
				slog.Warn("Metadata watcher disabled", "error", err)
			}
			return nil
		})
	}

	if cfg.GRPCHealthAddr != "" {
		grpcHealth := health.NewGRPCServer(checks, grpcProbeInterval)
		g.Go(func() error {
			return grpcHealth.ListenAndServe(gctx, cfg.GRPCHealthAddr)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}
