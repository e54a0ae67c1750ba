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

	"github.com/eduquery-ai/eduquery/internal/api/handlers"
	"github.com/eduquery-ai/eduquery/internal/config"
	"github.com/eduquery-ai/eduquery/internal/database"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/jobs"
	"github.com/eduquery-ai/eduquery/internal/openai"
	"github.com/eduquery-ai/eduquery/internal/repository"
	"github.com/eduquery-ai/eduquery/internal/server"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/eduquery-ai/eduquery/internal/storage"
	"github.com/eduquery-ai/eduquery/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the eduquery API server on the specified port",
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

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	corpusRepo := repository.NewCorpusRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	authSvc := service.NewAuthService(userRepo, sessionRepo)

	if cfg.InitTeacherUsername != "" && cfg.InitTeacherPassword != "" {
		if err := bootstrapInitialTeacher(ctx, cfg, authSvc, userRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial teacher: %w", err)
		}
	}

	var storageClient *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		storageClient, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var embeddingClient service.EmbeddingClient
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() && storageClient != nil {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
		embeddingSvc := service.NewEmbeddingService(embeddingClient, corpusRepo, documentRepo, storageClient)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	var routingSvc handlers.RoutingService
	if embeddingClient != nil {
		synthesizer := openai.NewSynthesizer(cfg.OpenAIAPIKey)
		routingSvc = service.NewRouteService(embeddingClient, synthesizer, corpusRepo, documentRepo, txRunner, service.RouteConfig{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			RetrievalLimit:      cfg.RetrievalLimit,
			ProviderTimeout:     time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
			EmbedMaxRetries:     3,
		})
	} else {
		routingSvc = &noOpRoutingService{}
	}

	var documentSvc handlers.DocumentService
	if storageClient != nil {
		documentSvc = service.NewDocumentService(documentRepo, embeddingJobRepo, storageClient, txRunner)
	} else {
		documentSvc = &noOpDocumentService{}
	}

	routerCfg := server.RouterConfig{
		SessionValidator:  authSvc,
		AuthHandler:       handlers.NewAuthHandler(authSvc),
		QuestionHandler:   handlers.NewQuestionHandler(routingSvc, service.NewAuditService(auditRepo)),
		EscalationHandler: handlers.NewEscalationHandler(service.NewEscalationService(escalationRepo)),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc),
		CorpusHandler:     handlers.NewCorpusHandler(service.NewCorpusService(txRunner, corpusRepo)),
	}

	router := server.NewRouter(routerCfg)

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

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpRoutingService struct{}

func (s *noOpRoutingService) Route(ctx context.Context, questionText string) (*service.RouteResult, error) {
	return nil, fmt.Errorf("routing not configured: OPENAI_API_KEY and S3_ENDPOINT required")
}

type noOpDocumentService struct{}

func (s *noOpDocumentService) Create(ctx context.Context, input service.CreateDocumentInput) (*service.CreateDocumentOutput, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) Ingest(ctx context.Context, documentID string) (*domain.EmbeddingJob, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	return "", fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *noOpDocumentService) DeleteAll(ctx context.Context) (int, error) {
	return 0, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func bootstrapInitialTeacher(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, userRepo *repository.UserRepository) error {
	existing, err := userRepo.GetByUsername(ctx, cfg.InitTeacherUsername)
	if err != nil && err != domain.ErrUserNotFound {
		return fmt.Errorf("failed to check existing teacher: %w", err)
	}

	if existing != nil {
		log.Printf("bootstrap: teacher '%s' already exists (id: %s)", existing.Username, existing.ID)
		return nil
	}

	user, err := authSvc.Register(ctx, service.RegisterInput{
		Name:     cfg.InitTeacherUsername,
		Username: cfg.InitTeacherUsername,
		Password: cfg.InitTeacherPassword,
		Role:     domain.RoleTeacher,
	})
	if err != nil {
		return fmt.Errorf("failed to create teacher: %w", err)
	}
	log.Printf("bootstrap: created teacher '%s' (id: %s)", user.Username, user.ID)

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
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
