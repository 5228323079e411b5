package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"voxguard/internal/cache"
	"voxguard/internal/compliance"
	consentservice "voxguard/internal/consent/service"
	consentstore "voxguard/internal/consent/store"
	"voxguard/internal/feedback"
	feedbackstore "voxguard/internal/feedback/store"
	"voxguard/internal/pii"
	"voxguard/internal/platform/config"
	"voxguard/internal/platform/kafka"
	"voxguard/internal/platform/postgres"
	"voxguard/internal/platform/redis"
	"voxguard/internal/retention"
	"voxguard/internal/rights"
	rightsstore "voxguard/internal/rights/store"
	"voxguard/internal/sanitizer"
	"voxguard/internal/scheduler"
	"voxguard/internal/voice"
	voicestore "voxguard/internal/voice/store"
	"voxguard/pkg/domain"
	audit "voxguard/pkg/platform/audit"
	auditcompliance "voxguard/pkg/platform/audit/publishers/compliance"
	auditkafka "voxguard/pkg/platform/audit/store/kafka"
	auditmemory "voxguard/pkg/platform/audit/store/memory"
	auditpostgres "voxguard/pkg/platform/audit/store/postgres"
	"voxguard/pkg/subjecthash"
)

// subjectCache is served by both cache implementations.
type subjectCache interface {
	Set(ctx context.Context, subject domain.SubjectHash, key string, value []byte, ttl time.Duration) error
	Entries(ctx context.Context, subject domain.SubjectHash) (map[string][]byte, error)
	DeleteSubject(ctx context.Context, subject domain.SubjectHash) (int, error)
}

type exportStore interface {
	rights.ExportStore
	rights.ExportBundles
}

// stores groups the persistence backends selected by config.
type stores struct {
	consent  consentservice.Store
	consentT consentservice.ConsentStoreTx
	voice    voice.Store
	sessions feedback.SessionStore
	events   feedback.EventStore
	requests rights.Store
	exports  exportStore
	tokens   rights.TokenStore
	audit    audit.Store
	cache    subjectCache
}

// app holds every wired component. Commands use the parts they need.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *prometheus.Registry

	hasher     *subjecthash.Hasher
	publisher  *auditcompliance.Publisher
	consent    *consentservice.Service
	feedback   *feedback.Service
	voice      *voice.Manager
	sanitizer  *sanitizer.Sanitizer
	rights     *rights.Service
	retention  *retention.Engine
	compliance *compliance.Service
	scheduler  *scheduler.Scheduler

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, reg: reg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	hashKey, err := cfg.SubjectHashKey()
	if err != nil {
		return nil, err
	}
	if a.hasher, err = subjecthash.New(hashKey); err != nil {
		return nil, err
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	a.publisher = auditcompliance.New(st.audit,
		auditcompliance.WithLogger(logger),
		auditcompliance.WithMetrics(auditcompliance.NewMetrics(reg)),
		auditcompliance.WithEscalationCapacity(cfg.Audit.EscalationCapacity),
	)
	a.closers = append(a.closers, func() {
		if err := a.publisher.Close(); err != nil {
			logger.Error("audit publisher shutdown", "error", err)
		}
	})

	defaults, err := cfg.ConsentDefaults()
	if err != nil {
		return nil, err
	}
	consentOpts := []consentservice.Option{
		consentservice.WithLogger(logger),
		consentservice.WithAuditPublisher(a.publisher),
		consentservice.WithLegalRetention(cfg.Consent.LegalRetention),
	}
	if st.consentT != nil {
		consentOpts = append(consentOpts, consentservice.WithTx(st.consentT))
	}
	if a.consent, err = consentservice.New(st.consent, defaults, consentOpts...); err != nil {
		return nil, err
	}

	if a.feedback, err = feedback.New(st.sessions, st.events, feedback.WithLogger(logger)); err != nil {
		return nil, err
	}

	remover, err := voice.NewFileRemover(cfg.Voice.StorageRoot)
	if err != nil {
		return nil, err
	}
	a.voice, err = voice.New(st.voice, remover, voice.Config{
		DeletionWindow:  cfg.Voice.DeletionWindow,
		DeletionTimeout: cfg.Voice.DeletionTimeout,
		ProofRetention:  cfg.Voice.ProofRetention,
	},
		voice.WithLogger(logger),
		voice.WithMetrics(voice.NewMetrics(reg)),
		voice.WithAuditPublisher(a.publisher),
		voice.WithSessionMarker(a.feedback),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.voice.Close)

	engine := newPIIEngine(cfg.Sanitizer)
	a.sanitizer, err = sanitizer.New(engine, sanitizer.Config{
		SimilarityThreshold: cfg.Sanitizer.SimilarityThreshold,
		SimilarityPenalty:   cfg.Sanitizer.SimilarityPenalty,
		DensityPenalty:      cfg.Sanitizer.DensityPenalty,
		ResidualPenalty:     cfg.Sanitizer.ResidualPenalty,
		MaxValidationPasses: cfg.Sanitizer.MaxValidationPasses,
	},
		sanitizer.WithLogger(logger),
		sanitizer.WithMetrics(sanitizer.NewMetrics(reg)),
		sanitizer.WithAuditPublisher(a.publisher),
	)
	if err != nil {
		return nil, err
	}

	// The scheduler owns the rights job queue, so its tasks reach the rights
	// service through the app once it is built.
	a.scheduler, err = scheduler.New(a.tasks(),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
		scheduler.WithWorkers(cfg.Scheduler.Workers),
		scheduler.WithQueueSize(cfg.Scheduler.QueueSize),
	)
	if err != nil {
		return nil, err
	}

	signing, err := cfg.ExportSigningKey()
	if err != nil {
		return nil, err
	}
	sealing, err := cfg.ExportSealingKey()
	if err != nil {
		return nil, err
	}
	sources := []rights.DataSource{
		rights.FeedbackSource(a.feedback),
		rights.AnalyticsSource(a.feedback),
		rights.ConsentSource(a.consent),
		rights.CacheSource(st.cache),
		rights.VoiceSource(a.voice),
		rights.ExportSource(st.exports),
	}
	a.rights, err = rights.New(st.requests, st.exports, st.tokens, sources, rights.Config{
		ExportTokenTTL:   cfg.Rights.ExportTokenTTL,
		ResponseDeadline: cfg.Rights.ResponseDeadline,
		StaleAfter:       cfg.Rights.StaleAfter,
		SigningKey:       signing,
		SealingKey:       sealing,
	},
		rights.WithLogger(logger),
		rights.WithMetrics(rights.NewMetrics(reg)),
		rights.WithAuditPublisher(a.publisher),
		rights.WithJobQueue(a.scheduler),
		rights.WithRectifier(rights.TranscriptRectifier(a.sanitizer, a.feedback)),
	)
	if err != nil {
		return nil, err
	}

	a.retention, err = retention.New(cfg.Retention.Policies, map[retention.Category]retention.Purger{
		retention.CategoryVoiceAudio:      retention.VoiceHandler(a.voice),
		retention.CategoryTranscript:      retention.NewTranscriptHandler(a.feedback, engine),
		retention.CategoryFeedbackSession: retention.NewSessionHandler(a.feedback, engine),
		retention.CategoryAnalytics:       retention.NewAnalyticsHandler(a.feedback, engine),
		retention.CategoryConsentRecord:   retention.PurgerFunc(a.consent.PurgeOlderThan),
		retention.CategoryAuditLog:        retention.PurgerFunc(st.audit.PurgeOlderThan),
		retention.CategoryExportFile:      retention.PurgerFunc(a.rights.PurgeExpiredExports),
	},
		retention.WithLogger(logger),
		retention.WithMetrics(retention.NewMetrics(reg)),
		retention.WithAuditPublisher(a.publisher),
		retention.WithHistoryLimit(cfg.Retention.HistoryLimit),
	)
	if err != nil {
		return nil, err
	}

	a.compliance, err = compliance.New(a.consent, a.voice, a.sanitizer, a.feedback, a.rights, compliance.Config{
		ChunkTTL:            cfg.Compliance.ChunkTTL,
		RetentionStaleAfter: cfg.Compliance.RetentionStaleAfter,
	},
		compliance.WithLogger(logger),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
		compliance.WithChunkCache(st.cache),
		compliance.WithRetentionStatus(a.retention),
		compliance.WithAuditStatus(a.publisher),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// tasks are the recurring jobs run by serve.
func (a *app) tasks() []scheduler.Task {
	cfg := a.cfg
	return []scheduler.Task{
		{
			Name:       "voice-sweep",
			Interval:   cfg.Voice.SweepInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.voice.Sweep(ctx)
				return err
			},
		},
		{
			Name:     "retention-enforce",
			Interval: cfg.Retention.Interval,
			Run: func(ctx context.Context) error {
				run, err := a.retention.Enforce(ctx)
				if err != nil {
					return err
				}
				if !run.OK() {
					return fmt.Errorf("retention run %s: %d categories failed", run.ID, run.Failed())
				}
				return nil
			},
		},
		{
			Name:     "audit-retry",
			Interval: cfg.Audit.RetryInterval,
			Run: func(ctx context.Context) error {
				if _, remaining := a.publisher.Flush(ctx); remaining > 0 {
					return fmt.Errorf("%d audit entries still unpersisted", remaining)
				}
				return nil
			},
		},
		{
			Name:       "rights-drain",
			Interval:   cfg.Rights.DrainInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.rights.ProcessPending(ctx)
				return err
			},
		},
	}
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	cfg := a.cfg
	st := &stores{}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		a.usePostgres(st, db)
	default:
		st.consent = consentstore.NewInMemoryStore()
		st.voice = voicestore.NewInMemoryStore()
		st.sessions = feedbackstore.NewInMemorySessionStore()
		st.events = feedbackstore.NewInMemoryEventStore()
		st.requests = rightsstore.NewInMemoryStore()
		st.exports = rightsstore.NewInMemoryExportStore()
		st.audit = auditmemory.NewInMemoryStore()
		a.logger.Warn("using in-memory storage; state is lost on restart")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		st.cache = cache.NewRedisCache(rc.Client)
		st.tokens = rightsstore.NewRedisTokenStore(rc.Client)
	} else {
		st.cache = cache.NewInMemoryCache()
		st.tokens = rightsstore.NewInMemoryTokenStore()
	}

	producer, err := kafka.New(ctx, cfg.Kafka, a.logger)
	if err != nil {
		return nil, err
	}
	if producer != nil {
		a.closers = append(a.closers, producer.Close)
		st.audit = a.mirror(st.audit, producer)
	}
	return st, nil
}

func (a *app) usePostgres(st *stores, db *sql.DB) {
	consent := consentstore.NewPostgresStore(db)
	st.consent = consent
	st.consentT = consentservice.NewSQLTx(db, consent)
	st.voice = voicestore.NewPostgresStore(db)
	st.sessions = feedbackstore.NewPostgresSessionStore(db)
	st.events = feedbackstore.NewPostgresEventStore(db)
	st.requests = rightsstore.NewPostgresStore(db)
	st.exports = rightsstore.NewPostgresExportStore(db)
	st.audit = auditpostgres.New(db)
}

func (a *app) mirror(primary audit.Store, producer *kgo.Client) audit.Store {
	return auditkafka.NewMirror(primary, producer, a.cfg.Kafka.AuditTopic,
		auditkafka.WithLogger(a.logger),
		auditkafka.WithCircuitBreaker(auditkafka.NewCircuitBreaker(5, 30*time.Second)),
	)
}

// newPIIEngine extends the built-in dictionaries with configured entries.
func newPIIEngine(cfg config.Sanitizer) *pii.Engine {
	return pii.NewEngine(
		pii.WithExtraFirstNames(cfg.ExtraFirstNames...),
		pii.WithExtraPlaces(cfg.ExtraPlaces...),
	)
}
