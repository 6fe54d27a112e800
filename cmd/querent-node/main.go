// Package main implements querent-node, the control-plane HTTP surface
// over the semantic extraction pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/querent-ai/querent-go/internal/eventbus"
	"github.com/querent-ai/querent-go/internal/extraction"
	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/internal/pipeline/ingest"
	"github.com/querent-ai/querent-go/internal/pipeline/source"
	"github.com/querent-ai/querent-go/internal/pipeline/supervisor"
	"github.com/querent-ai/querent-go/internal/storage/graphsink"
	"github.com/querent-ai/querent-go/internal/storage/metastore"
	"github.com/querent-ai/querent-go/internal/storage/vectorsink"
	"github.com/querent-ai/querent-go/pkg/metrics"
	"github.com/querent-ai/querent-go/pkg/mid"
	"github.com/querent-ai/querent-go/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	Neo4jURL         string
	Neo4jUser        string
	Neo4jPass        string
	QdrantURL        string
	Collection       string
	CORSOrigin       string
	NATSURL          string
	MetastoreBackend string
	EmbedDims        int
	MaxTokens        int
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8081"),
		Neo4jURL:         envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:        envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:        envOr("NEO4J_PASS", "password"),
		QdrantURL:        envOr("QDRANT_URL", "localhost:6334"),
		Collection:       envOr("QDRANT_COLLECTION", "querent"),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		NATSURL:          envOr("NATS_URL", nats.DefaultURL),
		MetastoreBackend: envOr("METASTORE_BACKEND", "memory"),
		EmbedDims:        envIntOr("EMBED_DIMS", 384),
		MaxTokens:        envIntOr("MAX_TOKENS", 512),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("querent-node exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)
	gsink := graphsink.New(neo4jDriver)

	vsink, err := vectorsink.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vsink.Close()
	if err := vsink.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		logger.Warn("ensure qdrant collection", "err", err)
	}

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logger.Warn("nats connect, event fan-out disabled", "err", err)
	} else {
		defer nc.Close()
	}

	var collectors metastore.Store = metastore.NewInMemory()
	if cfg.MetastoreBackend == "neo4j" {
		collectors = metastore.NewNeo4j(neo4jDriver)
	}

	svc := newSemanticService(cfg, gsink, vsink, nc, collectors)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", svc.metrics.Handler())
	mux.HandleFunc("POST /v1/pipelines", handleSpawnPipeline(svc, logger))
	mux.HandleFunc("GET /v1/pipelines/{id}", handleObservePipeline(svc, logger))
	mux.HandleFunc("GET /v1/pipelines", handleListPipelines(svc, logger))
	mux.HandleFunc("DELETE /v1/pipelines/{id}", handleShutdownPipeline(svc, logger))
	mux.HandleFunc("POST /v1/pipelines/{id}/restart", handleRestartPipeline(svc, logger))
	mux.HandleFunc("POST /v1/ingest", handleIngest(svc, logger))
	mux.HandleFunc("GET /v1/collectors", handleListCollectors(svc, logger))
	mux.HandleFunc("POST /v1/collectors", handlePutCollector(svc, logger))
	mux.HandleFunc("DELETE /v1/collectors/{id}", handleDeleteCollector(svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("querent-node starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// semanticService bundles the actor-equivalent state a control-plane
// handler needs: the pipeline supervisor, a shared extractor built from
// the configured model stack, the event sinks, and a collector config
// store. Each HTTP handler performs exactly one call into it, the
// synchronous equivalent of an ask on a dedicated actor's bus: the
// supervisor and metastore beneath it already serialize concurrent
// access internally, so a dedicated actor/mailbox layer here would only
// re-add latency without changing any observable behavior.
type semanticService struct {
	cfg        Config
	sup        *supervisor.PipelineSupervisor
	extractor  *extraction.Extractor
	graph      *graphsink.Sink
	vector     *vectorsink.Sink
	collectors metastore.Store
	bus        *eventbus.Bus
	metrics    *metrics.Registry

	pipelinesSpawned *metrics.Counter
	eventsEmitted    *metrics.Counter
	ingestRequests   *metrics.Counter

	ingestLimiter *resilience.Limiter
}

func newSemanticService(cfg Config, gsink *graphsink.Sink, vsink *vectorsink.Sink, nc *nats.Conn, collectors metastore.Store) *semanticService {
	ner := model.NewSimpleNER(cfg.MaxTokens, map[string]string{})
	embedder := model.NewHashEmbedder(cfg.EmbedDims)
	var bus *eventbus.Bus
	if nc != nil {
		bus = eventbus.New(nc)
	}
	reg := metrics.New()
	return &semanticService{
		cfg:              cfg,
		sup:              supervisor.New(),
		extractor:        extraction.New(ner.WhitespaceModel, ner, embedder),
		graph:            gsink,
		vector:           vsink,
		collectors:       collectors,
		bus:              bus,
		metrics:          reg,
		pipelinesSpawned: reg.Counter("querent_pipelines_spawned_total", "pipelines spawned since startup"),
		eventsEmitted:    reg.Counter("querent_events_emitted_total", "graph/vector events emitted since startup"),
		ingestRequests:   reg.Counter("querent_ingest_requests_total", "one-shot ingest requests served since startup"),
		ingestLimiter:    resilience.NewLimiter(resilience.LimiterOpts{Rate: 20, Burst: 40}),
	}
}

type spawnPipelineRequest struct {
	DocID    string `json:"doc_id"`
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

type spawnPipelineResponse struct {
	ID string `json:"id"`
}

func handleSpawnPipeline(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req spawnPipelineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		items := []pipeline.CollectedBytes{
			{File: req.DocID, SourceID: req.SourceID, Data: []byte(req.Text)},
			{File: req.DocID, SourceID: req.SourceID, Eof: true},
		}
		id, err := svc.sup.SpawnPipeline(r.Context(), supervisor.PipelineConfig{
			Source:    source.NewStatic(items),
			Processor: ingest.NewTextProcessor(),
			Extractor: svc.extractor,
			Graph:     svc.graph,
			Vector:    svc.vector,
			EventBus:  svc.bus,
			DocID:     req.DocID,
			SourceID:  req.SourceID,
		})
		if err != nil {
			logger.Error("spawn pipeline", "err", err)
			writeError(w, http.StatusInternalServerError, "could not spawn pipeline")
			return
		}
		svc.pipelinesSpawned.Inc()
		writeJSON(w, http.StatusAccepted, spawnPipelineResponse{ID: id})
	}
}

type observePipelineResponse struct {
	ID    string                        `json:"id"`
	State string                        `json:"state"`
	Stats supervisor.IndexingStatistics `json:"stats"`
}

func handleObservePipeline(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		stats, state, ok := svc.sup.ObservePipeline(id)
		if !ok {
			writeError(w, http.StatusNotFound, "pipeline not found")
			return
		}
		writeJSON(w, http.StatusOK, observePipelineResponse{ID: id, State: state.String(), Stats: stats})
	}
}

func handleListPipelines(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"note": "listing is observed per-id; no bulk enumeration is tracked server-side"})
	}
}

func handleShutdownPipeline(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := svc.sup.ShutdownPipeline(r.Context(), id); err != nil {
			logger.Error("shutdown pipeline", "err", err)
			writeError(w, http.StatusInternalServerError, "could not shut down pipeline")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRestartPipeline(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := svc.sup.RestartPipeline(r.Context(), id); err != nil {
			logger.Error("restart pipeline", "err", err)
			writeError(w, http.StatusInternalServerError, "could not restart pipeline")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type ingestRequest struct {
	DocID    string `json:"doc_id"`
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

func handleIngest(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.ingestLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "ingest rate limit exceeded")
			return
		}
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		svc.ingestRequests.Inc()
		events, err := svc.extractor.ExtractFromText(r.Context(), req.Text, req.DocID, req.SourceID, "", nil, time.Now())
		if err != nil {
			logger.Error("ingest extract", "err", err)
			writeError(w, http.StatusInternalServerError, "extraction failed")
			return
		}
		for _, ev := range events {
			svc.eventsEmitted.Inc()
			switch ev.Kind {
			case pipeline.EventGraph:
				if ev.Graph != nil {
					if err := svc.graph.Write(r.Context(), *ev.Graph); err != nil {
						logger.Error("write graph event", "err", err)
					}
				}
			case pipeline.EventVector:
				if ev.Vector != nil {
					if err := svc.vector.Write(r.Context(), ev.Vector.EventID, *ev.Vector, nil); err != nil {
						logger.Error("write vector event", "err", err)
					}
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]int{"events": len(events)})
	}
}

func handleListCollectors(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := svc.collectors.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not list collectors")
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}

type putCollectorRequest struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func handlePutCollector(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req putCollectorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if err := svc.collectors.Put(r.Context(), req.ID, req.Config); err != nil {
			writeError(w, http.StatusInternalServerError, "could not store collector config")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
	}
}

func handleDeleteCollector(svc *semanticService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := svc.collectors.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "could not delete collector config")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
