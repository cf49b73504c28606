package bootstrap

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tenderanalysis/internal/agent/classify"
	"tenderanalysis/internal/agent/compare"
	"tenderanalysis/internal/agent/risk"
	"tenderanalysis/internal/agent/ruc"
	"tenderanalysis/internal/agent/validate"
	"tenderanalysis/internal/api"
	"tenderanalysis/internal/audit"
	"tenderanalysis/internal/config"
	"tenderanalysis/internal/indicators"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/pkg/logger"
	"tenderanalysis/internal/repository/unitofwork"
	"tenderanalysis/internal/taxonomy"
	internalWS "tenderanalysis/internal/websocket"
	"tenderanalysis/pkg/embedding"
	"tenderanalysis/pkg/extractor"
	"tenderanalysis/pkg/nats"
	"tenderanalysis/pkg/vectorstore"
	"tenderanalysis/pkg/vectorstore/diskstore"
	"tenderanalysis/pkg/vectorstore/pgstore"
)

// Container wires every concrete adapter for one process lifetime:
// config -> embedding -> vector store -> taxonomy/indicators -> agents
// -> orchestrator -> persistence -> HTTP controllers.
type Container struct {
	Log          logger.ILogger
	Orchestrator *orchestrator.Orchestrator
	Compare      *compare.Agent
	Comparisons  *orchestrator.ComparisonStore
	UOWFactory   unitofwork.RepositoryFactory
	Controllers  api.Controllers
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	embedder := buildEmbedder(cfg)
	store := buildVectorStore(cfg, db, embedder.Dimension())

	tbl, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		sysLogger.Warn("bootstrap", "taxonomy load failed, using default table", map[string]interface{}{"error": err.Error()})
		tbl = taxonomy.Default()
	}
	bank := indicators.Default()

	classifyAgent := classify.New(tbl, embedder, store)
	validateAgent := validate.New(tbl)
	riskAgent := risk.New(bank, embedder)
	rucAgent := ruc.New(nil)
	// The system analyzes construction-tender documents exclusively, so
	// the RUC activity-compatibility term (spec §4.8) is checked against
	// a fixed domain default rather than a per-document field, mirroring
	// original_source's ruc_validator.validate_entity_compatibility,
	// whose work_type parameter defaults to "CONSTRUCCION".
	rucAgent.DeclaredWork = "construccion"
	compareAgent := compare.New()

	shellExtractor := extractor.NewShellExtractor(cfg.App.ConverterPath, time.Duration(cfg.App.ConverterTimeoutMs)*time.Millisecond)

	artifactStore := orchestrator.NewArtifactStore(cfg.App.DataRoot + "/artifacts")
	comparisonStore := orchestrator.NewComparisonStore(cfg.App.DataRoot + "/comparisons")

	orch := orchestrator.New(newExtractorAdapter(shellExtractor), classifyAgent, validateAgent, riskAgent, rucAgent, artifactStore, sysLogger)
	orch.PoolSize = cfg.Worker.PoolSize
	if cfg.Stage.TimeoutMs > 0 {
		orch.StageTimeout = time.Duration(cfg.Stage.TimeoutMs) * time.Millisecond
	}

	hub, bus := buildEventBus(cfg, sysLogger)
	orch.Events = bus

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	controllers := api.Controllers{
		Analysis:   api.NewAnalysisController(orch, uowFactory, hub, cfg.App.DataRoot, sysLogger),
		Comparison: api.NewComparisonController(orch, compareAgent, comparisonStore, uowFactory, cfg.App.DataRoot, sysLogger),
		Report:     api.NewReportController(orch, comparisonStore),
	}

	return &Container{
		Log:          sysLogger,
		Orchestrator: orch,
		Compare:      compareAgent,
		Comparisons:  comparisonStore,
		UOWFactory:   uowFactory,
		Controllers:  controllers,
	}
}

// buildEmbedder assembles the ordered remote->local fallback chain from
// cfg.Embedding.Providers, skipping entries whose endpoint is
// unconfigured rather than constructing a provider doomed to fail
// every call.
func buildEmbedder(cfg *config.Config) embedding.Provider {
	var providers []embedding.Provider
	var timeouts []time.Duration

	for _, p := range cfg.Embedding.Providers {
		switch p.Kind {
		case "remote":
			if p.Endpoint == "" {
				continue
			}
			providers = append(providers, embedding.NewRemoteProvider(p.Endpoint, p.Model, p.APIKey))
		case "local":
			if p.Endpoint == "" {
				continue
			}
			providers = append(providers, embedding.NewLocalProvider(p.Endpoint, p.Model))
		}
		timeouts = append(timeouts, time.Duration(p.TimeoutMs)*time.Millisecond)
	}

	rawLogger, _ := zap.NewProduction()
	if cfg.App.Environment != "production" {
		rawLogger, _ = zap.NewDevelopment()
	}
	return embedding.NewFallbackProvider(rawLogger, providers, timeouts)
}

// buildVectorStore picks Postgres-backed storage when a database
// connection is configured, falling back to the disk-backed store
// (matching embedding's own remote/local fallback philosophy) so the
// classify and risk agents still work against a bare checkout.
func buildVectorStore(cfg *config.Config, db *gorm.DB, dimension int) vectorstore.Store {
	if cfg.Database.Connection != "" && db != nil {
		return pgstore.New(db, dimension)
	}
	return diskstore.New(cfg.App.DataRoot + "/vectors")
}

// buildEventBus wires the run-progress notification chain: an
// in-process watermill GoChannel always backs the websocket hub, a
// Redis connection (when reachable) republishes each event so a
// second API instance's clients see it too, and a NATS/JetStream
// publisher (when reachable) puts the same events on a durable stream
// for out-of-process consumers. The Redis and NATS legs each degrade
// independently, with a logged warning, rather than failing bootstrap, matching
// the embedding provider's and vector store's own fallback posture.
func buildEventBus(cfg *config.Config, log logger.ILogger) (*internalWS.Hub, orchestrator.EventBus) {
	wmLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Warn("bootstrap", "invalid REDIS_URL, cross-instance progress fan-out disabled", map[string]interface{}{"error": err.Error()})
		} else {
			client := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("bootstrap", "redis unreachable, cross-instance progress fan-out disabled", map[string]interface{}{"error": err.Error()})
			} else {
				rdb = client
			}
		}
	}

	hub := internalWS.NewHub(pubSub, pubSub, rdb, log)

	buses := orchestrator.MultiEventBus{hub}
	if cfg.App.NatsURL != "" {
		publisher, err := nats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Warn("bootstrap", "nats unreachable, durable progress stream disabled", map[string]interface{}{"error": err.Error()})
		} else {
			buses = append(buses, publisher)
			startAuditLogger(cfg, log)
		}
	}

	return hub, buses
}

// startAuditLogger wires a second NATS connection as a durable consumer
// of the same stream the publisher writes to, giving an independent,
// replayable audit trail of every run.stage_changed event. Its own
// connection failure only disables the audit trail, never the
// publish path buildEventBus already established.
func startAuditLogger(cfg *config.Config, log logger.ILogger) {
	sub, err := nats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Warn("bootstrap", "nats subscriber unreachable, audit trail disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := audit.NewLogger(sub, log).Start(); err != nil {
		log.Warn("bootstrap", "audit subscriber failed to start", map[string]interface{}{"error": err.Error()})
	}
}
