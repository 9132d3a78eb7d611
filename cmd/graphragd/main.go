// Command graphragd runs the GraphRAG ingestion, search, HTTP, and MCP
// services as a single process, wiring the internal packages the way the
// system this was distilled from split across api/server.py and
// mcp/mcp_server.py.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"graphrag/internal/config"
	"graphrag/internal/dedupe"
	"graphrag/internal/extract"
	"graphrag/internal/graphstore"
	"graphrag/internal/httpapi"
	"graphrag/internal/ingest"
	"graphrag/internal/jobs"
	"graphrag/internal/llm"
	"graphrag/internal/llm/providers"
	"graphrag/internal/logging"
	"graphrag/internal/mcpserver"
	"graphrag/internal/model"
	"graphrag/internal/observability"
	"graphrag/internal/search"
	"graphrag/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		logging.Log.WithError(err).Fatal("graphragd exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)
	log := logging.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var otelShutdown func(context.Context) error
	if cfg.ObsConfig.OTLP != "" {
		shutdown, err := observability.InitOTel(ctx, cfg.ObsConfig)
		if err != nil {
			log.WithError(err).Warn("otel init failed, continuing without telemetry export")
		} else {
			otelShutdown = shutdown
			observability.EnableOTelBridge(cfg.ObsConfig.ServiceName)
		}
	}

	graph, err := graphstore.NewNeo4jGraph(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer graph.Close(context.Background())

	vector, err := vectorstore.NewChromaStore(ctx, cfg.Chroma.PersistDirectory, "graphrag")
	if err != nil {
		return fmt.Errorf("connect chroma: %w", err)
	}
	defer vector.Close(context.Background())

	httpClient := observability.NewHTTPClient(&http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second})
	primary, err := providers.Build(ctx, cfg.LLM, httpClient)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}
	fallback, err := providers.BuildFallback(ctx, cfg.LLM, httpClient)
	if err != nil {
		return fmt.Errorf("build llm fallback provider: %w", err)
	}
	gateway := llm.NewGateway(primary, fallback, log)

	detector := dedupe.New(graph, log)
	extractor := extract.New(gateway, log)
	ingestor := ingest.New(graph, vector, gateway, detector, extractor, log)
	searcher := search.New(graph, vector, gateway)

	jobManager := jobs.New(cfg.StateDir, log)
	if err := jobManager.Recover(); err != nil {
		log.WithError(err).Warn("job recovery failed, continuing with an empty job table")
	}

	version := cfg.ObsConfig.ServiceVersion
	apiServer := httpapi.NewServer(graph, vector, ingestor, searcher, jobManager, version, log)
	mcpSrv := mcpserver.NewServer(graph, vector, ingestor, searcher, jobManager, version, log)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", mcpSrv.HandleWebSocket)

	addr := fmt.Sprintf(":%d", cfg.Ports.API)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(map[string]any{"addr": addr, "mcp_path": "/mcp"}).Info("graphragd listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cancelRunningJobs(jobManager, log)

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown did not complete cleanly")
	}
	if otelShutdown != nil {
		if err := otelShutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("otel shutdown did not complete cleanly")
		}
	}
	return nil
}

// cancelRunningJobs best-effort cancels every still-queued or still-running
// job so its persisted record reads "cancelled" rather than being picked up
// by the next startup's crash-recovery pass as "failed due to server
// restart" (Manager.Recover's handling of an ungraceful exit).
func cancelRunningJobs(m *jobs.Manager, log *logrus.Logger) {
	running := m.List(jobs.Filter{Status: model.JobStatusRunning})
	queued := m.List(jobs.Filter{Status: model.JobStatusQueued})
	for _, job := range append(running, queued...) {
		if m.Cancel(job.JobID) {
			log.WithField("job_id", job.JobID).Info("cancelled in-flight job for shutdown")
		}
	}
}
