package main

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

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/application"
	appanalyses "github.com/ahmad9059/sehatscan/internal/application/analyses"
	appassistant "github.com/ahmad9059/sehatscan/internal/application/assistant"
	appdigest "github.com/ahmad9059/sehatscan/internal/application/digest"
	"github.com/ahmad9059/sehatscan/internal/config"
	domainanalysis "github.com/ahmad9059/sehatscan/internal/domain/analysis"
	openaiClient "github.com/ahmad9059/sehatscan/internal/infra/ai/openai"
	rediscache "github.com/ahmad9059/sehatscan/internal/infra/cache"
	mysqlp "github.com/ahmad9059/sehatscan/internal/infra/db/mysql"
	postgresp "github.com/ahmad9059/sehatscan/internal/infra/db/postgres"
	identityp "github.com/ahmad9059/sehatscan/internal/infra/identity"
	inferencep "github.com/ahmad9059/sehatscan/internal/infra/inference"
	"github.com/ahmad9059/sehatscan/internal/infra/httpserver"
	minioStore "github.com/ahmad9059/sehatscan/internal/infra/storage"
	"github.com/ahmad9059/sehatscan/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect the analysis store
	var db *sql.DB
	var repo domainanalysis.Repository
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		repo = postgresp.NewAnalysisRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		repo = mysqlp.NewAnalysisRepository(db)
	}
	defer db.Close()

	healthCheckers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	// redis cache is optional; without it every summary recomputes
	var cacheHandle domainanalysis.Cache
	if cfg.Redis.Addr != "" {
		rc, err := rediscache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer rc.Close()
			cacheHandle = rc
			healthCheckers["redis"] = &middleware.PingHealthChecker{Target: rc}
		}
	}

	// minio archive store is optional; without it face scans skip the
	// source-image copy
	var artifacts domainanalysis.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Warn("minio unavailable, running without artifact archive", zap.Error(err))
		} else {
			artifacts = store
		}
	}

	// inference gateway
	inferClient := inferencep.NewClient(cfg.Inference.BaseURL, cfg.Inference.APIKey, inferencep.Timeouts{
		Face:   cfg.InferenceTimeout("face"),
		Report: cfg.InferenceTimeout("report"),
		Risk:   cfg.InferenceTimeout("risk"),
	}, logger)

	resolver := identityp.ContextResolver{}

	// init services
	analysesSvc := &appanalyses.Service{
		Repo:             repo,
		Inference:        inferClient,
		Artifacts:        artifacts,
		Identity:         resolver,
		Cache:            cacheHandle,
		Clock:            application.SystemClock{},
		Log:              logger,
		MaxImageBytes:    cfg.Limits.MaxImageBytes,
		MaxDocumentBytes: cfg.Limits.MaxDocumentBytes,
	}
	digestSvc := &appdigest.Service{
		Repo:  repo,
		Cache: cacheHandle,
		Log:   logger,
	}
	assistantSvc := &appassistant.Service{
		Digest:   digestSvc,
		Client:   openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Identity: resolver,
		Log:      logger,
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.RateLimit(30, 1))
	mux.Mount("/", httpserver.NewRouter(analysesSvc, digestSvc, assistantSvc, middleware.HealthHandler(healthCheckers)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
