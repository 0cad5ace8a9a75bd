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

	"github.com/beaconchat/beacon/internal/api/handlers"
	"github.com/beaconchat/beacon/internal/config"
	"github.com/beaconchat/beacon/internal/database"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/extract"
	"github.com/beaconchat/beacon/internal/jobs"
	"github.com/beaconchat/beacon/internal/openai"
	"github.com/beaconchat/beacon/internal/repository"
	"github.com/beaconchat/beacon/internal/server"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/beaconchat/beacon/internal/storage"
	"github.com/beaconchat/beacon/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const indexPollInterval = 5 * time.Minute

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the beacon API server on the specified port",
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

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{})
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

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	chatbotRepo := repository.NewChatbotRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	logicRepo := repository.NewLogicRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(workspaceRepo, apiKeyRepo, uuidGen)

	if cfg.InitWorkspaceName != "" {
		if err := bootstrapInitialWorkspace(ctx, cfg, workspaceRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial workspace: %w", err)
		}
	}

	if !cfg.HasLLM() {
		return fmt.Errorf("BEACON_LLM_API_KEY is required to serve")
	}
	llmClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.LLMAPIKey,
		BaseURL:             cfg.LLMBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
	})

	var archiver service.SourceArchiver
	if cfg.HasS3() {
		archive, err := storage.NewSourceArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = archive
	}

	embeddingSvc := service.NewEmbeddingService(llmClient)
	searchSvc := service.NewSearchService(chunkRepo, embeddingSvc, cfg.SearchThreshold)
	contextSvc := service.NewContextService(kbRepo, conversationRepo, searchSvc)
	chatSvc := service.NewChatService(chatbotRepo, contextSvc, llmClient, txRunner)
	ingestSvc := service.NewIngestService(kbRepo, documentRepo, chunkRepo, embeddingSvc, extract.NewWebpageFetcher(), archiver, cfg.EmbeddingDimensions)
	knowledgeSvc := service.NewKnowledgeService(kbRepo, chunkRepo)
	chatbotSvc := service.NewChatbotService(chatbotRepo, knowledgeSvc, cfg.ChatModel)
	logicSvc := service.NewLogicService(logicRepo)

	indexWorker := jobs.NewWorker(jobs.NewIndexWorker(chunkRepo), indexPollInterval)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go indexWorker.Start(workerCtx)
	log.Println("index maintenance worker started")

	routerCfg := server.RouterConfig{
		AuthValidator:       authSvc,
		ChatbotHandler:      handlers.NewChatbotHandler(chatbotSvc),
		KnowledgeHandler:    handlers.NewKnowledgeHandler(ingestSvc, knowledgeSvc, chatbotSvc),
		ChatHandler:         handlers.NewChatHandler(chatSvc, conversationRepo, chatbotSvc),
		LogicHandler:        handlers.NewLogicHandler(logicSvc, chatbotSvc),
		ConversationHandler: handlers.NewConversationHandler(conversationRepo, chatbotSvc),
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

	workerCancel()
	indexWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func bootstrapInitialWorkspace(ctx context.Context, cfg *config.Config, workspaceRepo *repository.WorkspaceRepository, authSvc *service.AuthService) error {
	workspace, err := workspaceRepo.GetByName(ctx, cfg.InitWorkspaceName)
	if err != nil && err != domain.ErrWorkspaceNotFound {
		return fmt.Errorf("failed to check existing workspace: %w", err)
	}

	if workspace == nil {
		workspace, err = authSvc.CreateWorkspace(ctx, cfg.InitWorkspaceName)
		if err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		log.Printf("bootstrap: created workspace '%s' (id: %s)", workspace.Name, workspace.ID)
	} else {
		log.Printf("bootstrap: workspace '%s' already exists (id: %s)", workspace.Name, workspace.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid BEACON_INIT_API_KEY format (expected 'bcn_<64 hex chars>')")
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, workspace.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			if err == domain.ErrAPIKeyAlreadyExists {
				log.Println("bootstrap: API key already exists")
				return nil
			}
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
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
