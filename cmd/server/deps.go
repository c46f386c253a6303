package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/handler"
	"github.com/evalbridge/evalbridge/internal/middleware"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
	chrepo "github.com/evalbridge/evalbridge/internal/repository/clickhouse"
	pgrepo "github.com/evalbridge/evalbridge/internal/repository/postgres"
	"github.com/evalbridge/evalbridge/internal/scoring"
	"github.com/evalbridge/evalbridge/internal/service"
	"github.com/evalbridge/evalbridge/internal/worker"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Database connections
	Postgres   *database.PostgresDB
	SQLX       *sqlx.DB
	ClickHouse *database.ClickHouseDB
	Redis      *redis.Client
	Minio      *minio.Client

	// Repositories
	TraceRepo    *chrepo.TraceRepository
	ScoreRepo    *chrepo.ScoreRepository
	TemplateRepo *pgrepo.TemplateRepository
	APIKeyRepo   *pgrepo.APIKeyRepository
	AuditRepo    *pgrepo.AuditRepository

	// Services
	ScoringClient      *scoring.Client
	RealtimeHub        *service.RealtimeHub
	AggregationService *service.AggregationService
	EvaluationService  *service.EvaluationService
	TemplateService    *service.TemplateService
	ReferenceService   *service.ReferenceService
	AuthService        *service.AuthService
	AuditService       *service.AuditService
	ScoreService       *service.ScoreService

	// Handlers
	HealthHandler       *handler.HealthHandler
	TracesHandler       *handler.TracesHandler
	AggregationsHandler *handler.AggregationsHandler
	EvaluationsHandler  *handler.EvaluationsHandler
	TemplatesHandler    *handler.TemplatesHandler
	ReferencesHandler   *handler.ReferencesHandler
	EventsHandler       *handler.EventsHandler
	AuthHandler         *handler.AuthHandler
	AuditHandler        *handler.AuditHandler
	ScoresHandler       *handler.ScoresHandler

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Asynq client
	AsynqClient *asynq.Client
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	deps.Postgres = pgDB

	// Audit entries go through sqlx on the same PostgreSQL instance
	sqlxDB, err := database.NewSQLX(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sqlx: %w", err)
	}
	deps.SQLX = sqlxDB

	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}
	deps.ClickHouse = chDB

	redisClient, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	deps.Redis = redisClient

	minioClient, err := initMinio(cfg)
	if err != nil {
		logger.Warn("failed to initialize MinIO, reference storage will be unavailable", zap.Error(err))
	}
	deps.Minio = minioClient

	// Repositories
	deps.TraceRepo = chrepo.NewTraceRepository(chDB)
	deps.ScoreRepo = chrepo.NewScoreRepository(chDB)
	deps.TemplateRepo = pgrepo.NewTemplateRepository(pgDB)
	deps.APIKeyRepo = pgrepo.NewAPIKeyRepository(pgDB)
	deps.AuditRepo = pgrepo.NewAuditRepository(sqlxDB)

	// Asynq client for score record tasks
	deps.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Services
	deps.ScoringClient = scoring.NewClient(cfg.Scoring, logger)
	deps.RealtimeHub = service.NewRealtimeHub()

	aggregators := service.NewAggregatorRegistry(deps.TraceRepo, cfg.Aggregation, deps.RealtimeHub, logger)
	deps.AggregationService = service.NewAggregationService(deps.TraceRepo, aggregators, cfg.Aggregation, logger)

	deps.ReferenceService = service.NewReferenceService(minioClient, cfg.MinIO.Bucket, logger)

	coordinators := service.NewCoordinatorRegistry(
		deps.ScoringClient,
		deps.AuditRepo,
		worker.NewEnqueuer(deps.AsynqClient),
		logger,
	)
	deps.EvaluationService = service.NewEvaluationService(coordinators, deps.AggregationService, deps.ReferenceService, logger)

	deps.TemplateService = service.NewTemplateService(deps.TemplateRepo, logger)
	deps.AuthService = service.NewAuthService(deps.APIKeyRepo, cfg.JWT, logger)
	deps.AuditService = service.NewAuditService(deps.AuditRepo, logger)
	deps.ScoreService = service.NewScoreService(deps.ScoreRepo, logger)

	// Handlers
	deps.HealthHandler = handler.NewHealthHandler(pgDB, chDB, redisClient, appVersion)
	deps.TracesHandler = handler.NewTracesHandler(deps.AggregationService, logger)
	deps.AggregationsHandler = handler.NewAggregationsHandler(deps.AggregationService, logger)
	deps.EvaluationsHandler = handler.NewEvaluationsHandler(deps.EvaluationService, deps.TemplateService, logger)
	deps.TemplatesHandler = handler.NewTemplatesHandler(deps.TemplateService, logger)
	deps.ReferencesHandler = handler.NewReferencesHandler(deps.ReferenceService, logger)
	deps.EventsHandler = handler.NewEventsHandler(deps.RealtimeHub, logger)
	deps.AuthHandler = handler.NewAuthHandler(deps.AuthService, logger)
	deps.AuditHandler = handler.NewAuditHandler(deps.AuditService, logger)
	deps.ScoresHandler = handler.NewScoresHandler(deps.ScoreService, logger)

	// Middleware
	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.AuthService)
	deps.RateLimitMiddleware = middleware.NewRateLimitMiddleware(redisClient, cfg.RateLimit)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() {
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	if d.SQLX != nil {
		_ = d.SQLX.Close()
	}
	if d.ClickHouse != nil {
		_ = d.ClickHouse.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.AsynqClient != nil {
		_ = d.AsynqClient.Close()
	}
}

// initMinio initializes the MinIO client used for reference datasets
func initMinio(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, nil // MinIO not configured
	}

	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinIO.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIO.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return client, nil
}
