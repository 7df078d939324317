// Package app initializes and orchestrates the main components of the
// consolidation service. It wires together the configuration, server, and
// other services.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/code-quorum/internal/aggregate"
	"github.com/sevigo/code-quorum/internal/config"
	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/cycle"
	"github.com/sevigo/code-quorum/internal/db"
	"github.com/sevigo/code-quorum/internal/dedup"
	"github.com/sevigo/code-quorum/internal/engine"
	"github.com/sevigo/code-quorum/internal/jobs"
	"github.com/sevigo/code-quorum/internal/orchestrator"
	"github.com/sevigo/code-quorum/internal/reviewer"
	"github.com/sevigo/code-quorum/internal/server"
	"github.com/sevigo/code-quorum/internal/server/handler"
	"github.com/sevigo/code-quorum/internal/storage"
	"github.com/sevigo/code-quorum/internal/themes"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher core.JobDispatcher
	cleanup    func()
}

// newAnalyzerHTTPClient creates an HTTP client for reviewer calls. Analyzers
// can take a while, so the per-request deadline is left to the orchestrator's
// context and only connection setup is bounded here.
func newAnalyzerHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing consolidation service",
		"reviewers_file", cfg.ReviewersFile,
		"cycle_store", cfg.CycleStore,
		"max_workers", cfg.MaxWorkers,
	)

	registry, err := reviewer.LoadRegistry(cfg.ReviewersFile, newAnalyzerHTTPClient())
	if err != nil {
		return nil, fmt.Errorf("failed to load reviewer registry: %w", err)
	}
	logger.Info("reviewer registry loaded", "reviewers", registry.Len())

	var (
		store   storage.CycleStore
		cleanup = func() {}
	)
	switch cfg.CycleStore {
	case "postgres":
		dbConn, closeDB, err := db.NewDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store = storage.NewPostgresStore(dbConn.DB)
		cleanup = closeDB
	default:
		store = storage.NewMemoryStore()
	}

	eng := BuildEngine(cfg, store, registry.Weights(), logger)

	consolidateJob := jobs.NewConsolidateJob(eng, registry, logger)
	dispatcher := jobs.NewDispatcher(consolidateJob, cfg.MaxWorkers, logger)

	consolidateHandler := handler.NewConsolidateHandler(dispatcher, eng, registry, store, logger)
	httpServer := server.NewServer(ctx, cfg, consolidateHandler, logger)

	logger.Info("consolidation service initialized successfully")
	return &App{
		ctx:        ctx,
		cfg:        cfg,
		server:     httpServer,
		logger:     logger,
		dispatcher: dispatcher,
		cleanup:    cleanup,
	}, nil
}

// BuildEngine assembles the consolidation pipeline from configuration. The
// CLI uses it directly for one-shot runs without the HTTP surface.
func BuildEngine(cfg *config.Config, store storage.CycleStore, weights map[string]float64, logger *slog.Logger) *engine.Engine {
	orch := orchestrator.New(cfg.PerReviewerTimeout, logger)
	dd := dedup.New(cfg.SimilarityThreshold, cfg.LineProximityWindow, logger)
	agg := aggregate.New(weights)
	syn := themes.New(themes.DefaultTaxonomy(), cfg.ConfidenceFloor, cfg.MaxThemes)
	tracker := cycle.New(store, cfg.MaxCycleIterations, cfg.SimilarityThreshold, cfg.ImprovementRateFloor, logger)
	return engine.New(orch, dd, agg, syn, tracker, logger)
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting consolidation service", "server_port", a.cfg.ServerPort)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down consolidation service")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight runs to finish.
	a.dispatcher.Stop()

	a.cleanup()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("consolidation service stopped successfully")
	return nil
}
