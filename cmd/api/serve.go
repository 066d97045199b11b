package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"libportal/docs"
	"libportal/internal/auth"
	"libportal/internal/database"
	"libportal/internal/database/migration"
	handlers "libportal/internal/http/handler"
	"libportal/internal/http/middleware"
	"libportal/internal/live"
	"libportal/internal/logger"
	"libportal/internal/otel"
	"libportal/internal/repository/postgres"
	"libportal/internal/service"
	"libportal/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "libportal", log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO, cfg.Upload.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	hub, err := live.NewHub(logger.Component(log, "live"), prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to initialize live hub: %w", err)
	}
	if cfg.Live.PGListen {
		dial := func(ctx context.Context) (*pgx.Conn, error) {
			return database.ConnectListener(ctx, cfg.Database)
		}
		listener := live.NewPGListener(dial, migration.ChangeChannel, hub, logger.Component(log, "pglisten"))
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change listener stopped")
			}
		}()
	}

	// Initialize repositories and services
	repo := postgres.NewDocumentPostgres(db)
	registry := service.NewRegistry(repo, hub, logger.Component(log, "content"))
	upload := service.NewUploadService(objStore, cfg.Upload.Folder, int64(cfg.Upload.MaxBytes), logger.Component(log, "upload"))
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	metrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart framing on top of the largest accepted image.
		BodyLimit: cfg.Upload.MaxBytes + 1<<20,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		Context:  ctx,
		DB:       db,
		Registry: registry,
		Upload:   upload,
		Hub:      hub,
		Sessions: verifier,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log,
	})

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
		log.Info().Str("addr", addr).Msg("server listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("server shutdown incomplete")
	}
	return nil
}
