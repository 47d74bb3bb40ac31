package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"docvault/docs"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logging"
	"docvault/internal/otel"
	"docvault/internal/preview"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().StringVar(&cfg.Storage.Driver, "storage", cfg.Storage.Driver, "blob store driver (minio or fs)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	loc := cfg.Location()
	log := logging.NewJSON(os.Stdout, cfg.LogLevel, loc)

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn(sctx, "tracing shutdown failed", "error", err.Error())
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	objStore, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	previews, closeCache, err := newPreviewGenerator(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize previews: %w", err)
	}
	defer closeCache()

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	tokenRepo := postgres.NewTokenPostgres(db)

	docSvc := service.NewDocumentService(objStore, docRepo, service.DocumentServiceConfig{
		Formats:        cfg.Preview.Formats,
		Previews:       previews,
		Concurrency:    cfg.Preview.Concurrency,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Logger:         log,
	})
	archiveSvc := service.NewArchiveService(objStore, docRepo, log)
	linkSvc, err := service.NewLinkService(objStore, tokenRepo, log)
	if err != nil {
		return fmt.Errorf("failed to initialize links: %w", err)
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.Upload.MaxBodyBytes,
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.LoggerWithWriter(os.Stdout, loc))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, handlers.Services{
		Documents: docSvc,
		Archives:  archiveSvc,
		Links:     linkSvc,
	}, cfg.PublicBaseURL)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server_starting", "addr", addr, "storage_driver", cfg.Storage.Driver)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server_stopping")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// newStorage selects the blob store backend by driver name.
func newStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "fs":
		return storage.NewFS(afero.NewOsFs(), cfg.Storage.Root, cfg.Storage.Prefix)
	case "minio", "":
		return storage.NewMinIO(cfg.MinIO, cfg.Storage.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newPreviewGenerator builds the thumbnail generator. The Redis cache is only
// attached when REDIS_ADDR is set and the server answers a ping.
func newPreviewGenerator(ctx context.Context, cfg *config.AppConfig, log logging.Logger) (*preview.Generator, func(), error) {
	metrics, err := preview.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}

	opts := preview.Options{
		Size:           cfg.Preview.Size,
		Timeout:        cfg.Preview.Timeout,
		MaxSourceBytes: cfg.Preview.MaxSourceBytes,
		Metrics:        metrics,
		Logger:         log,
	}

	closeCache := func() {}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			log.Warn(ctx, "preview cache disabled", "redis_addr", cfg.Redis.Addr, "error", err.Error())
			_ = client.Close()
		} else {
			opts.Cache = preview.NewRedisCache(client, cfg.Redis.CacheTTL, log)
			closeCache = func() { _ = client.Close() }
		}
	}

	return preview.NewGenerator(opts), closeCache, nil
}
