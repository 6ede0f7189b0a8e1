package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/taskgate/internal/adapter/filestore"
	tgnats "github.com/Strob0t/taskgate/internal/adapter/nats"
	"github.com/Strob0t/taskgate/internal/adapter/mocktools"
	"github.com/Strob0t/taskgate/internal/adapter/ollama"
	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/adapter/postgres"
	"github.com/Strob0t/taskgate/internal/adapter/routecache"
	"github.com/Strob0t/taskgate/internal/adapter/semantic"
	"github.com/Strob0t/taskgate/internal/adapter/ws"
	"github.com/Strob0t/taskgate/internal/config"
	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/port/cache"
	"github.com/Strob0t/taskgate/internal/port/database"
	"github.com/Strob0t/taskgate/internal/port/embedding"
	"github.com/Strob0t/taskgate/internal/port/messagequeue"
	"github.com/Strob0t/taskgate/internal/port/toolbackend"
	"github.com/Strob0t/taskgate/internal/resilience"
	"github.com/Strob0t/taskgate/internal/secrets"
	"github.com/Strob0t/taskgate/internal/service"
)

// infra holds the optional external connections. Nil fields are disabled.
type infra struct {
	pool  *pgxpool.Pool
	queue *tgnats.Queue
	hub   *ws.Hub
}

// app is the wired service graph shared by all subcommands.
type app struct {
	cfg       *config.Config
	metrics   *otel.Metrics
	policy    *service.PolicyService
	approvals *service.ApprovalService
	dispatch  *service.DispatchService
	agent     *service.AgentService
	router    *service.RouterService
	query     *service.QueryService
	audit     *service.AuditService
	dataset   *filestore.Dataset
	corpus    *service.Corpus
	embedder  embedding.Embedder
	vault     *secrets.Vault

	closers []func()
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// connectInfra opens PostgreSQL and NATS when the configuration asks for
// them. PostgreSQL is required once selected; NATS is best effort.
func connectInfra(ctx context.Context, cfg *config.Config) (*infra, func(), error) {
	in := &infra{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Approvals.Backend == "postgres" || cfg.Audit.Postgres {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, cleanup, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		version, err := postgres.Migrate(ctx, pool)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("postgres connected", "schema_version", version)
		in.pool = pool
	}

	if cfg.NATS.URL != "" {
		q, err := tgnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, event publishing disabled", "error", err)
		} else {
			closers = append(closers, func() { _ = q.Drain() })
			in.queue = q
		}
	}
	return in, cleanup, nil
}

// newEmbedder returns the Ollama client guarded by a circuit breaker, or the
// deterministic pseudo embedder when no model URL is configured.
func newEmbedder(cfg *config.Config) embedding.Embedder {
	if cfg.Embedding.OllamaURL == "" {
		return semantic.Pseudo{Dim: cfg.Embedding.Dimensions}
	}
	c := ollama.NewClient(cfg.Embedding.OllamaURL, cfg.Embedding.Model, cfg.Embedding.Dimensions, cfg.Embedding.Timeout)
	c.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	return c
}

func newRouteCache(ctx context.Context, cfg *config.Config, q *tgnats.Queue) (cache.Cache, func(), error) {
	l1, err := routecache.NewMemory(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, nil, fmt.Errorf("route cache: %w", err)
	}
	if q == nil || cfg.NATS.CacheKV == "" {
		return l1, l1.Close, nil
	}
	kv, err := q.KeyValue(ctx, cfg.NATS.CacheKV, cfg.Cache.TTL)
	if err != nil {
		slog.Warn("route cache L2 unavailable", "bucket", cfg.NATS.CacheKV, "error", err)
		return l1, l1.Close, nil
	}
	return routecache.NewTiered(l1, routecache.NewKV(kv), cfg.Cache.TTL), l1.Close, nil
}

// buildApp wires the services. memoryApprovals keeps approvals in process,
// which the demo uses so that it never touches the operator's store.
func buildApp(ctx context.Context, cfg *config.Config, in *infra, memoryApprovals bool) (*app, error) {
	a := &app{cfg: cfg}

	metrics, err := otel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics

	tables, err := policy.Load(cfg.Data.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	a.policy = service.NewPolicyService(tables)

	a.vault, err = secrets.NewVault(secrets.PrefixEnvLoader(secrets.DefaultEnvPrefix))
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	// --- Approvals ---
	var store *postgres.Store
	if in.pool != nil {
		store = postgres.NewStore(in.pool)
	}
	switch {
	case memoryApprovals:
		a.approvals = service.NewApprovalService(nil, nil)
	case cfg.Approvals.Backend == "postgres":
		a.approvals = service.NewApprovalService(store, store)
	default:
		a.approvals = service.NewApprovalService(
			filestore.NewApprovalFile(cfg.Approvals.File),
			filestore.NewJSONLLog(cfg.Approvals.AuditLog),
		)
	}
	a.approvals.Load(ctx)
	a.approvals.AddListener(service.MeterApprovals(metrics))

	// --- Audit ---
	var (
		sinks  []database.AuditSink
		reader database.AuditReader
	)
	if cfg.Audit.Log != "" {
		auditLog := filestore.NewJSONLLog(cfg.Audit.Log)
		sinks = append(sinks, auditLog)
		reader = auditLog
	}
	if cfg.Audit.Postgres && store != nil {
		sinks = append(sinks, store)
		reader = store
	}
	a.audit = service.NewAuditService(a.policy, reader)
	if in.queue != nil {
		var q messagequeue.Queue = in.queue
		sinks = append(sinks, service.QueueAuditSink{Queue: q})
		a.approvals.AddListener(service.PublishApprovals(q))
	}
	if in.hub != nil {
		sinks = append(sinks, service.BroadcastAuditSink{Broadcaster: in.hub})
		a.approvals.AddListener(service.BroadcastApprovals(in.hub))
	}

	// --- Dispatch & agent ---
	backends := toolbackend.NewRegistry(mocktools.All(a.policy, a.vault)...)
	a.dispatch = service.NewDispatchService(a.policy, a.approvals, backends, service.NewAuditFanout(sinks...))
	a.dispatch.SetMetrics(metrics)

	// --- Router ---
	a.dataset = filestore.NewDataset(
		cfg.DataPath(cfg.Data.LabelsCSV),
		cfg.DataPath(cfg.Data.VerifiedCSV),
		cfg.DataPath(cfg.Data.FailureCSV),
	)
	a.corpus = service.NewCorpus(a.dataset, tables)
	a.embedder = newEmbedder(cfg)

	routeCache, closeCache, err := newRouteCache(ctx, cfg, in.queue)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	a.router = service.NewRouterService(a.corpus,
		service.NewMatcher(cfg.Router.Matcher, cfg.DataPath(cfg.Data.EmbeddingsFN), a.embedder),
		a.dataset,
		service.WithRecordWorkers(cfg.Router.RecordWorkers),
		service.WithRouteCache(routeCache, cfg.Cache.TTL),
		service.WithRouterMetrics(metrics),
	)
	a.closers = append(a.closers, a.router.Close)

	a.agent = service.NewAgentService(a.dispatch)
	a.query = service.NewQueryService(a.router, a.policy, a.agent, cfg.Router.Threshold)
	return a, nil
}
