package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillforge/skillforge-backend/internal/catalog"
	"github.com/skillforge/skillforge-backend/internal/data/aggregates"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/db"
	"github.com/skillforge/skillforge-backend/internal/observability"
	"github.com/skillforge/skillforge-backend/internal/platform/envutil"
	"github.com/skillforge/skillforge-backend/internal/platform/gcp"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"github.com/skillforge/skillforge-backend/internal/platform/redisx"
	"github.com/skillforge/skillforge-backend/internal/platform/sendgrid"
	"github.com/skillforge/skillforge-backend/internal/server"
	"github.com/skillforge/skillforge-backend/internal/services"
	"github.com/skillforge/skillforge-backend/internal/temporalx"
	"github.com/skillforge/skillforge-backend/internal/temporalx/temporalworker"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional catalog cache)
	redisClient, err := redisx.NewClient(ctx, log)
	if err != nil {
		log.Warn("Redis init failed; catalog cache disabled", "error", err)
		redisClient = nil
	}

	// Metrics
	metrics := observability.Init(log)
	if observability.Enabled() {
		metrics.StartServer(ctx, log, envutil.String("METRICS_ADDR", ":9090"))
		metrics.StartPostgresCollector(ctx, log, thePG)
		if redisClient != nil {
			metrics.StartRedisCollector(ctx, log, redisx.Addr())
		}
	}

	// Repos
	log.Info("Setting up repos...")
	allRepos := repos.NewAll(thePG, log)

	// Aggregates
	deps := aggregates.BaseDeps{
		DB:       thePG,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(thePG),
		Hooks:    aggregates.NewObservabilityHooks(metrics),
		CASGuard: aggregates.NewCASGuard(thePG),
	}
	publicationAgg := aggregates.NewPublicationAggregate(deps, allRepos)

	// Media storage
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Bucket service init failed; media operations disabled", "error", err)
	}

	// Mail
	mailClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("SendGrid init failed; author notifications disabled", "error", err)
		mailClient = nil
	}

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Warn("Temporal init failed; transcode jobs disabled", "error", err)
		temporalClient = nil
	}
	temporalCfg := temporalx.LoadConfig()
	if temporalClient != nil {
		defer temporalClient.Close()
		runner, err := temporalworker.NewRunner(log, temporalClient, thePG, allRepos.Contents, bucketService)
		if err != nil {
			log.Warn("Temporal worker init failed", "error", err)
		} else if err := runner.Start(ctx); err != nil {
			log.Warn("Temporal worker start failed", "error", err)
		}
	}

	// Services
	log.Info("Setting up services...")
	cacheTTL := envutil.DurationSeconds("CATALOG_CACHE_TTL_SECONDS", 60)
	catalogModel := catalog.New(thePG, allRepos.Policies, redisClient, cacheTTL, log)

	mailer := services.NewMailer(mailClient, metrics, log)
	catalogService := services.NewCatalogService(catalogModel, log)
	reviewService := services.NewReviewService(allRepos, publicationAgg, temporalClient, temporalCfg.TaskQueue, mailer, metrics, log)

	// Heal review records stranded between the release pivot and the record
	// close of a previous run.
	if err := reviewService.Reconcile(ctx); err != nil {
		log.Warn("Review record reconcile failed", "error", err)
	}

	// Router
	router := server.NewRouter(server.RouterConfig{DB: thePG, Redis: redisClient, Catalog: catalogService})
	port := envutil.String("PORT", "8080")
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown failed", "error", err)
	}
}
