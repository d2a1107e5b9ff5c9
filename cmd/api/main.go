package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/racemap/internal/adapters/gpx"
	"github.com/samirrijal/racemap/internal/adapters/http"
	natsadapter "github.com/samirrijal/racemap/internal/adapters/nats"
	"github.com/samirrijal/racemap/internal/adapters/postgres"
	"github.com/samirrijal/racemap/internal/adapters/render"
	"github.com/samirrijal/racemap/internal/adapters/tracksource"
	"github.com/samirrijal/racemap/internal/adapters/valkey"
	"github.com/samirrijal/racemap/internal/core/ports"
	"github.com/samirrijal/racemap/internal/core/usecases"
	"github.com/samirrijal/racemap/internal/pkg/config"
	"github.com/samirrijal/racemap/internal/pkg/logging"
	"github.com/samirrijal/racemap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("racemap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		Map: render.Options{
			Render:          cfg.Render,
			TileConcurrency: cfg.Tiles.Concurrency,
		},
		TileConfig: cfg.Tiles,
	}

	// Track source
	var source ports.TrackSource
	switch cfg.Tracks.Source {
	case config.SourceHTTP:
		timeout := time.Duration(cfg.Tracks.Timeout) * time.Second
		source = tracksource.NewHTTPSource(cfg.Tracks.BaseURL, nil, timeout)
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), 8)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo := postgres.NewTrackRepo(db)
		source = repo
		deps.Tracks = repo
		deps.DB = db
	default:
		source = tracksource.NewFileSource(cfg.Tracks.BaseDir)
	}
	slog.Info("track source", "kind", cfg.Tracks.Source)

	// Cache
	var cacheSvc ports.CacheService
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr, "racemap:")
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			cacheSvc = cache
			deps.Cache = cache
		}
	}

	// NATS
	var events ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}

		// Raw NATS connection for WebSocket relay
		natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
			deps.NATS = natsConn
		}
	}

	deps.Routes = usecases.NewRouteService(source, gpx.ParseTrack, cacheSvc, events, cfg.Tracks.CacheTTL)

	// Drop cached raw tracks when trackload replaces them.
	if cfg.NATS.URL != "" && cacheSvc != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("track update subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeTrackUpdates(ctx, "racemap-api-cache", func(ctx context.Context, path string) error {
				slog.Info("track updated, invalidating cache", "path", path)
				return deps.Routes.Invalidate(ctx, path)
			})
			if err != nil {
				slog.Warn("subscribe track updates", "error", err)
			}
		}
	}

	// Base map tiles
	tiles, err := render.NewHTTPTileSource(cfg.Tiles, &nethttp.Client{
		Timeout: time.Duration(cfg.Tiles.Timeout) * time.Second,
	})
	if err != nil {
		log.Fatalf("tiles: %v", err)
	}
	deps.Tiles = tiles

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "RaceMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
