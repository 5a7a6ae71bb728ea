// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/replenish/backend-go/internal/api"
	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/memory"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
	"github.com/andresuchdata/replenish/backend-go/pkg/metrics"
)

type repositories struct {
	catalog  repository.CatalogRepository
	policies repository.PolicyRepository
	archive  repository.ArchiveRepository
	close    func() error
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(os.Stdout, cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	repos, err := openRepositories(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open repositories")
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close repositories")
		}
	}()

	catalogCache, err := cache.NewCatalogCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Catalog cache unavailable, continuing without cache")
		catalogCache = cache.NewNoopCatalogCache()
	}

	store := openStorage(ctx, cfg.Storage)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	replenishMetrics := metrics.NewReplenishmentMetrics(registry)

	// Initialize services
	policyService := service.NewPolicyService(repos.policies, catalogCache)
	if seeded, created, err := policyService.EnsureDefault(ctx, cfg.Policy); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to seed default policy")
	} else if created {
		logger.Log.Info().Str("policy_id", seeded.ID).Str("name", seeded.Name).Msg("Seeded default policy")
	}

	catalogService := service.NewCatalogService(repos.catalog, policyService, nil, service.CatalogOptions{
		Cache:   catalogCache,
		Metrics: replenishMetrics,
		Defaults: domain.ItemDefaults{
			LeadTimeDays:  cfg.Items.LeadTimeDays,
			MinOrderQty:   cfg.Items.MinOrderQty,
			OrderMultiple: cfg.Items.OrderMultiple,
		},
		Workers: cfg.App.IngestWorkers,
	})
	proposalService := service.NewProposalService(catalogService, repos.archive, replenishMetrics)
	archiveService := service.NewArchiveService(repos.archive)
	exportService := service.NewExportService(proposalService, archiveService, store)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		Policies:  policyService,
		Catalog:   catalogService,
		Proposals: proposalService,
		Archive:   archiveService,
		Exports:   exportService,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func openRepositories(ctx context.Context, cfg *config.DatabaseConfig) (repositories, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return repositories{}, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return repositories{}, err
		}
		return repositories{
			catalog:  postgres.NewCatalogRepository(db),
			policies: postgres.NewPolicyRepository(db),
			archive:  postgres.NewArchiveRepository(db),
			close:    db.Close,
		}, nil
	default:
		logger.Log.Warn().Msg("Using in-memory repositories; data is lost on restart")
		return repositories{
			catalog:  memory.NewCatalogStore(),
			policies: memory.NewPolicyStore(),
			archive:  memory.NewArchiveStore(),
			close:    func() error { return nil },
		}, nil
	}
}

// openStorage returns nil when publishing is disabled or the bucket is unreachable.
func openStorage(ctx context.Context, cfg config.StorageConfig) storage.ObjectStorage {
	if !cfg.Enabled {
		return nil
	}
	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Object storage misconfigured, publishing disabled")
		return nil
	}
	if err := client.EnsureBucket(ctx); err != nil {
		logger.Log.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("Object storage unavailable, publishing disabled")
		return nil
	}
	return client
}
