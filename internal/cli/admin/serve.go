package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/echolens/echolens/internal/adapter"
	"github.com/echolens/echolens/internal/api/handlers"
	"github.com/echolens/echolens/internal/config"
	"github.com/echolens/echolens/internal/jobs"
	"github.com/echolens/echolens/internal/ledger"
	"github.com/echolens/echolens/internal/normalizer"
	"github.com/echolens/echolens/internal/openai"
	"github.com/echolens/echolens/internal/repository"
	"github.com/echolens/echolens/internal/server"
	"github.com/echolens/echolens/internal/service"
	"github.com/echolens/echolens/internal/storage"
	"github.com/echolens/echolens/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the echolens API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	contentRepo := repository.NewContentRepository(pool)
	costLedger := ledger.NewCostLedger(cfg.BudgetMicros())

	var archive service.RawArchiveInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready, raw archiving enabled", cfg.S3Bucket)
		archive = s3Client
	}

	var embedder service.EmbedderInterface
	var backlogWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingSvc := service.NewEmbeddingService(
			openai.NewClient(cfg.OpenAIAPIKey),
			costLedger,
			service.EmbeddingConfig{
				RatePerThousandMicros: cfg.EmbeddingRateMicros,
				TruncateOversized:     cfg.TruncateOversized,
			},
		)
		embedder = embeddingSvc

		backlogProcessor := jobs.NewEmbedBacklogWorker(contentRepo, embeddingSvc)
		backlogWorker = jobs.NewWorker(backlogProcessor, cfg.WorkerPollInterval)
		go backlogWorker.Start(ctx)
		log.Println("embed backlog worker started")
	} else {
		embedder = &NoOpEmbedder{}
		log.Println("no embedding provider configured, ingestion is disabled")
	}

	registry := adapter.NewRegistry()
	registry.Register(adapter.NewYouTube(adapter.YouTubeConfig{
		APIBaseURL: cfg.YouTubeAPIBaseURL,
		WebBaseURL: cfg.YouTubeWebBaseURL,
		APIKey:     cfg.YouTubeAPIKey,
		Options: adapter.Options{
			WindowLimit:    cfg.YouTubeRateLimit,
			WindowDuration: cfg.RateWindow,
			MinInterval:    adapter.SmoothingInterval(cfg.RateWindow, cfg.YouTubeRateLimit),
			Ledger:         costLedger,
		},
	}))
	registry.Register(adapter.NewReddit(adapter.RedditConfig{
		APIBaseURL:    cfg.RedditAPIBaseURL,
		MirrorBaseURL: cfg.RedditMirrorBaseURL,
		Options: adapter.Options{
			WindowLimit:    cfg.RedditRateLimit,
			WindowDuration: cfg.RateWindow,
			MinInterval:    adapter.SmoothingInterval(cfg.RateWindow, cfg.RedditRateLimit),
			Ledger:         costLedger,
		},
	}))
	registry.Register(adapter.NewWeb(adapter.WebConfig{
		Options: adapter.Options{
			WindowLimit:    cfg.WebRateLimit,
			WindowDuration: cfg.RateWindow,
			MinInterval:    adapter.SmoothingInterval(cfg.RateWindow, cfg.WebRateLimit),
			Ledger:         costLedger,
		},
	}))

	norm := normalizer.New()
	retrievalSvc := service.NewRetrievalService(contentRepo, embedder)
	collectSvc := service.NewCollectService(registry, archive, norm, retrievalSvc)
	patternSvc := service.NewPatternService(contentRepo)

	router := server.NewRouter(server.RouterConfig{
		APIToken:        cfg.APIToken,
		CollectHandler:  handlers.NewCollectHandler(collectSvc),
		ContentHandler:  handlers.NewContentHandler(retrievalSvc, norm),
		PatternsHandler: handlers.NewPatternsHandler(patternSvc),
		UsageHandler:    handlers.NewUsageHandler(costLedger, cfg.BudgetMicros()),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if backlogWorker != nil {
		backlogWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpEmbedder stands in when no embedding provider is configured. Queries
// and ingestion fail with a clear message; stored content remains readable.
type NoOpEmbedder struct{}

func (e *NoOpEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error) {
	return nil, 0, 0, fmt.Errorf("embedding provider not configured: ECHOLENS_OPENAI_API_KEY required")
}

func (e *NoOpEmbedder) EmbedBatch(ctx context.Context, texts []string) (*service.EmbedResult, error) {
	return nil, fmt.Errorf("embedding provider not configured: ECHOLENS_OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
