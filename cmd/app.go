package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Support-Router/agent/agents/coordinator"
	routerx "github.com/tanpawarit/Chative-Support-Router/agent/agents/router"
	"github.com/tanpawarit/Chative-Support-Router/agent/agents/specialist"
	auditx "github.com/tanpawarit/Chative-Support-Router/agent/audit"
	"github.com/tanpawarit/Chative-Support-Router/agent/hybrid"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	"github.com/tanpawarit/Chative-Support-Router/agent/policydoc"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	openrouterx "github.com/tanpawarit/Chative-Support-Router/pkg/openrouter"
	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
)

type AppConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"8000"`
	CORSOrigins     string        `envconfig:"CORS_ORIGINS" split_words:"true" default:"http://localhost:3000,http://localhost:3001"`
	SessionTimeout  time.Duration `envconfig:"SESSION_TIMEOUT" split_words:"true" default:"30m"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" split_words:"true" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`

	// PublicURL is the externally reachable base URL, used for the QStash
	// cleanup schedule and signature subject.
	PublicURL string `envconfig:"PUBLIC_URL" split_words:"true"`
}

func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c AppConfig) cleanupURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
	if base == "" {
		return ""
	}
	return base + "/sessions/cleanup"
}

type app struct {
	cfg      AppConfig
	sessions *statex.Store
	service  *coordinator.Coordinator
	verifier *qstashx.Verifier
	qstash   *qstashx.Client
	qcfg     qstashx.Config
	vectors  *retrieval.Handle[*retrieval.PGVectorStore]
}

// buildApp wires every component from configuration. Only the LLM settings
// are required; every other backend degrades when unset.
func buildApp(ctx context.Context) (*app, error) {
	appCfg, err := configx.New[AppConfig]("APP")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	vectorCfg, err := configx.New[retrieval.Config]("VECTOR")
	if err != nil {
		return nil, fmt.Errorf("load vector config: %w", err)
	}
	redisCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, fmt.Errorf("load upstash redis config: %w", err)
	}
	policyCfg, err := configx.New[policydoc.Config]("POLICY")
	if err != nil {
		return nil, fmt.Errorf("load policy config: %w", err)
	}
	auditCfg, err := configx.New[auditx.Config]("AUDIT")
	if err != nil {
		return nil, fmt.Errorf("load audit config: %w", err)
	}
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, fmt.Errorf("load qstash config: %w", err)
	}

	sessions, static, err := sessionStores(*redisCfg, appCfg.SessionTimeout)
	if err != nil {
		return nil, err
	}

	vectors := openVectorStore(*vectorCfg)

	billing := hybrid.New(retrieval.Lazy(vectors, retrieval.CollectionBilling), static)
	gateway := toolx.NewGateway(toolx.Deps{
		Billing:   billing,
		Technical: retrieval.Lazy(vectors, retrieval.CollectionTechnical),
	})

	policySrc, err := policySource(ctx, *policyCfg)
	if err != nil {
		return nil, err
	}
	policies := policydoc.Load(ctx, policySrc)

	registry, err := specialist.NewRegistry(ctx, *llmCfg, specialist.Options{
		Tools:         gateway,
		PolicyContext: policies.Context(),
		MaxSteps:      llmCfg.Steps(),
		TurnTimeout:   llmCfg.TurnTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build specialists: %w", err)
	}

	router, err := routerx.NewFromConfig(ctx, *llmCfg, registry)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	recorder, err := auditRecorder(ctx, *auditCfg)
	if err != nil {
		return nil, err
	}

	service, err := coordinator.New(sessions, router, coordinator.WithAudit(recorder))
	if err != nil {
		return nil, err
	}

	qclient, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		return nil, fmt.Errorf("qstash client: %w", err)
	}

	return &app{
		cfg:      *appCfg,
		sessions: sessions,
		service:  service,
		verifier: qclient.Verifier(),
		qstash:   qclient,
		qcfg:     *qstashCfg,
		vectors:  vectors,
	}, nil
}

// openVectorStore returns a lazily opened pgvector handle. The first
// retrieval opens the connection; a failed open disables retrieval until
// restart.
func openVectorStore(cfg retrieval.Config) *retrieval.Handle[*retrieval.PGVectorStore] {
	if !cfg.Enabled() {
		log.Warn().Msg("vector store not configured, retrieval disabled")
		return retrieval.Failed[*retrieval.PGVectorStore]("pgvector", errors.New("VECTOR_DSN not set"))
	}
	return retrieval.NewHandle("pgvector", func(ctx context.Context) (*retrieval.PGVectorStore, error) {
		client := openrouterx.NewClient(openrouterx.Config{
			BaseURL: cfg.EmbeddingBaseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Timeout: cfg.QueryTimeout,
		})
		embedder, err := retrieval.NewOpenAIEmbedder(client, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return retrieval.OpenPGVector(ctx, cfg, embedder)
	})
}

// sessionStores builds the session store and the static-context cache. With
// Upstash configured, evicted sessions also drop their cached entry there.
func sessionStores(cfg statex.UpstashRedisConfig, timeout time.Duration) (*statex.Store, hybrid.StaticStore, error) {
	if !cfg.Enabled() {
		sessions := statex.NewStore(statex.WithTimeout(timeout))
		log.Info().Msg("static context cached in session memory")
		return sessions, statex.NewSessionContextStore(sessions), nil
	}
	static, err := statex.NewUpstashContextStore(cfg, statex.WithTTL(timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("upstash context store: %w", err)
	}
	sessions := statex.NewStore(statex.WithTimeout(timeout), statex.WithEvictionHook(static.Forget))
	log.Info().Msg("static context cached in upstash redis")
	return sessions, static, nil
}

func policySource(ctx context.Context, cfg policydoc.Config) (policydoc.Source, error) {
	if strings.TrimSpace(cfg.SSMPrefix) == "" {
		return policydoc.NewDirSource(cfg.Path), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	src, err := policydoc.NewSSMSource(ssm.NewFromConfig(awsCfg), cfg.SSMPrefix)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func auditRecorder(ctx context.Context, cfg auditx.Config) (auditx.Recorder, error) {
	if !cfg.Enabled() {
		return auditx.Noop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	rec, err := auditx.NewDynamoRecorder(dynamodb.NewFromConfig(awsCfg), cfg.Table, cfg.TTL)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// scheduleCleanup registers the QStash cron that calls POST
// /sessions/cleanup. Failures are logged; the in-process janitor still runs.
func (a *app) scheduleCleanup(ctx context.Context) {
	cron := strings.TrimSpace(a.qcfg.CleanupCron)
	dest := a.cfg.cleanupURL()
	if cron == "" || dest == "" || strings.TrimSpace(a.qcfg.Token) == "" {
		return
	}
	if _, err := url.ParseRequestURI(dest); err != nil {
		log.Warn().Err(err).Str("destination", dest).Msg("invalid cleanup destination")
		return
	}
	id, err := a.qstash.RegisterSchedule(ctx, dest, cron)
	if err != nil {
		log.Warn().Err(err).Msg("register cleanup schedule failed")
		return
	}
	log.Info().Str("schedule_id", id).Str("cron", cron).Msg("cleanup schedule registered")
}

func (a *app) close() {
	if store, ok := a.vectors.Opened(); ok {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close vector store")
		}
	}
}
