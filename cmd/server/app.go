package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	audithandler "unionhub/internal/audit/handler"
	authhandler "unionhub/internal/auth/handler"
	authservice "unionhub/internal/auth/service"
	authstore "unionhub/internal/auth/store"
	"unionhub/internal/auth/token"
	bmmconfig "unionhub/internal/bmm/config"
	bmmhandler "unionhub/internal/bmm/handler"
	bmmmetrics "unionhub/internal/bmm/metrics"
	bmmservice "unionhub/internal/bmm/service"
	bmmstore "unionhub/internal/bmm/store"
	eventhandler "unionhub/internal/event/handler"
	eventservice "unionhub/internal/event/service"
	eventstore "unionhub/internal/event/store"
	importhandler "unionhub/internal/importer/handler"
	"unionhub/internal/importer/informer"
	importmetrics "unionhub/internal/importer/metrics"
	importservice "unionhub/internal/importer/service"
	memberhandler "unionhub/internal/member/handler"
	membermetrics "unionhub/internal/member/metrics"
	memberservice "unionhub/internal/member/service"
	memberstore "unionhub/internal/member/store"
	"unionhub/internal/notification/delivery"
	notificationhandler "unionhub/internal/notification/handler"
	notificationmetrics "unionhub/internal/notification/metrics"
	notificationmodels "unionhub/internal/notification/models"
	"unionhub/internal/notification/sender"
	notificationservice "unionhub/internal/notification/service"
	notificationstore "unionhub/internal/notification/store"
	"unionhub/internal/notification/stratum"
	"unionhub/internal/platform/config"
	"unionhub/internal/platform/kafka"
	httpmetrics "unionhub/internal/platform/metrics"
	"unionhub/internal/platform/objectstore"
	"unionhub/internal/platform/postgres"
	"unionhub/internal/platform/redis"
	ratelimitmetrics "unionhub/internal/ratelimit/metrics"
	ratelimit "unionhub/internal/ratelimit/middleware"
	ratelimitmodels "unionhub/internal/ratelimit/models"
	ratelimitstore "unionhub/internal/ratelimit/store"
	httptransport "unionhub/internal/transport/http"
	audit "unionhub/pkg/platform/audit"
	auditpublisher "unionhub/pkg/platform/audit/publisher"
	auditmemory "unionhub/pkg/platform/audit/store/memory"
	auditpostgres "unionhub/pkg/platform/audit/store/postgres"
	"unionhub/pkg/platform/circuit"
	"unionhub/pkg/platform/tx"
)

type memberStore interface {
	memberservice.MemberStore
	memberservice.FormStore
}

type notificationStore interface {
	notificationservice.TemplateStore
	notificationservice.LogStore
}

// app is the dependency graph shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	tokens   *token.JWTService
	audit    *auditpublisher.Publisher

	events        *eventservice.Service
	members       *memberservice.Service
	bmm           *bmmservice.Service
	notifications *notificationservice.Service
	importer      *importservice.Service
	auth          *authservice.Service
	notifyMetrics *notificationmetrics.Metrics
}

// newApp opens the configured backends and builds the services. An empty
// DATABASE_URL runs everything on in-memory stores.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var (
		runner        tx.Runner
		members       memberStore
		events        eventservice.Store
		eventMembers  bmmservice.Store
		notifications notificationStore
		admins        authservice.AdminStore
		auditEvents   audit.Store
	)
	if cfg.Database.URL != "" {
		a.db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err = postgres.Migrate(ctx, a.db); err != nil {
			return nil, err
		}
		runner = postgres.NewTxRunner(a.db, cfg.Database.TxTimeout)
		members = memberstore.NewPostgres(a.db)
		events = eventstore.NewPostgres(a.db)
		eventMembers = bmmstore.NewPostgres(a.db)
		notifications = notificationstore.NewPostgres(a.db)
		admins = authstore.NewPostgres(a.db)
		auditEvents = auditpostgres.New(a.db)
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		runner = tx.NewMemoryRunner()
		members = memberstore.NewInMemory()
		events = eventstore.NewInMemory()
		eventMembers = bmmstore.NewInMemory()
		notifications = notificationstore.NewInMemory()
		admins = authstore.NewInMemory()
		auditEvents = auditmemory.NewInMemoryStore()
	}
	a.audit = auditpublisher.NewPublisher(auditEvents, auditpublisher.WithLogger(logger))

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	a.notifyMetrics = notificationmetrics.New(a.registry)
	emailSender, smsSender, err := a.senders()
	if err != nil {
		return nil, err
	}
	a.notifications, err = notificationservice.New(notifications, notifications,
		notificationservice.WithLogger(logger),
		notificationservice.WithAuditor(a.audit),
		notificationservice.WithMetrics(a.notifyMetrics),
		notificationservice.WithSender(notificationmodels.ChannelEmail, emailSender),
		notificationservice.WithSender(notificationmodels.ChannelSMS, smsSender),
	)
	if err != nil {
		return nil, err
	}

	a.events = eventservice.New(events, eventservice.WithLogger(logger), eventservice.WithAuditor(a.audit))

	workflow, err := bmmconfig.Load(cfg.Workflow.ConfigPath)
	if err != nil {
		return nil, err
	}
	bmmOpts := []bmmservice.Option{
		bmmservice.WithLogger(logger),
		bmmservice.WithAuditor(a.audit),
		bmmservice.WithMetrics(bmmmetrics.New(a.registry)),
		bmmservice.WithNotifier(a.notifications),
	}
	if cfg.ObjectStore.Enabled() {
		store, err := objectstore.New(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, err
		}
		bmmOpts = append(bmmOpts, bmmservice.WithTicketRenderer(bmmservice.NewQRTicketRenderer(store)))
	} else {
		bmmOpts = append(bmmOpts, bmmservice.WithTicketRenderer(bmmservice.NewQRTicketRenderer(nil)))
	}
	if a.redis != nil {
		bmmOpts = append(bmmOpts, bmmservice.WithSendGuard(redis.NewSendGuard(a.redis, cfg.Redis.GuardTTL)))
	}
	a.bmm = bmmservice.New(eventMembers, members, a.events, runner,
		workflow.WithPublicURL(cfg.Server.PublicURL), bmmOpts...)

	memberOpts := []memberservice.Option{
		memberservice.WithLogger(logger),
		memberservice.WithAuditor(a.audit),
		memberservice.WithMetrics(membermetrics.New(a.registry)),
		memberservice.WithRegistrationAdvancer(a.bmm),
		memberservice.WithNotifier(a.notifications),
	}
	if cfg.Stratum.Enabled() {
		memberOpts = append(memberOpts, memberservice.WithMemberSyncer(a.stratum()))
	}
	a.members = memberservice.New(members, members, runner, memberOpts...)

	importOpts := []importservice.Option{
		importservice.WithLogger(logger),
		importservice.WithAuditor(a.audit),
		importservice.WithMetrics(importmetrics.New(a.registry)),
		importservice.WithRegistrar(a.bmm),
	}
	if cfg.Informer.BaseURL != "" {
		importOpts = append(importOpts, importservice.WithFetcher(
			informer.New(cfg.Informer.BaseURL, cfg.Informer.Timeout, informer.WithLogger(logger)),
		))
	}
	a.importer = importservice.New(members, runner, importOpts...)

	a.tokens = token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	a.auth = authservice.New(admins, a.tokens, authservice.WithLogger(logger), authservice.WithAuditor(a.audit))
	return a, nil
}

// senders picks the email and sms transports. Kafka queues both channels for
// the delivery worker; otherwise email goes straight to the gateway when one
// is configured and anything else is only logged.
func (a *app) senders() (email, sms notificationservice.Sender, err error) {
	logOnly := sender.NewLog(a.logger)
	if a.cfg.Kafka.Enabled() {
		a.producer, err = kafka.NewProducer(a.cfg.Kafka.Brokers, a.logger)
		if err != nil {
			return nil, nil, err
		}
		queue := sender.NewQueue(a.producer, a.cfg.Kafka.EmailTopic, a.cfg.Kafka.SMSTopic)
		return queue, queue, nil
	}
	if a.cfg.Stratum.Enabled() {
		return a.stratum(), logOnly, nil
	}
	return logOnly, logOnly, nil
}

func (a *app) stratum() *stratum.Client {
	return stratum.New(a.cfg.Stratum.Endpoint, a.cfg.Stratum.SecurityKey, a.cfg.Stratum.Timeout,
		stratum.WithLogger(a.logger),
		stratum.WithBreaker(circuit.New("stratum")),
	)
}

// deliveryWorker builds the queue consumer side. Channels without a provider
// are logged and dropped.
func (a *app) deliveryWorker() *delivery.Worker {
	var (
		email delivery.EmailProvider
		sms   delivery.SMSProvider
	)
	if m := a.cfg.Mailjet; m.Enabled() {
		email = delivery.NewMailjet(m.BaseURL, m.APIKey, m.APISecret, m.FromEmail, m.FromName)
	}
	if t := a.cfg.Twilio; t.Enabled() {
		sms = delivery.NewTwilio(t.AccountSID, t.AuthToken, t.FromNumber)
	}
	return delivery.NewWorker(email, sms, a.logger, a.notifyMetrics)
}

// seed creates the default event templates and notification templates. It is
// idempotent.
func (a *app) seed(ctx context.Context) error {
	templates, err := a.events.SeedDefaultTemplates(ctx)
	if err != nil {
		return fmt.Errorf("seed event templates: %w", err)
	}
	notifications, err := a.notifications.EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed notification templates: %w", err)
	}
	a.logger.InfoContext(ctx, "defaults seeded",
		"event_templates", templates,
		"notification_templates", notifications,
	)
	return nil
}

func (a *app) httpConfig() httptransport.Config {
	authH := authhandler.New(a.auth, a.logger)
	memberH := memberhandler.New(a.members, a.logger)
	eventH := eventhandler.New(a.events, a.logger)
	bmmH := bmmhandler.New(a.bmm, a.logger)

	health := map[string]httptransport.HealthCheck{}
	if a.db != nil {
		health["database"] = a.db.PingContext
	}
	if a.redis != nil {
		health["redis"] = a.redis.Health
	}
	return httptransport.Config{
		Logger:   a.logger,
		Metrics:  httpmetrics.New(a.registry),
		Gatherer: a.registry,
		Tokens:   a.tokens,
		Public:   []httptransport.PublicRoutes{authH, memberH, eventH, bmmH},
		Admin: []httptransport.AdminRoutes{
			authH,
			memberH,
			eventH,
			bmmH,
			notificationhandler.New(a.notifications, a.logger),
			importhandler.New(a.importer, a.logger),
			audithandler.New(a.audit, a.logger),
		},
		Health:           health,
		PublicMiddleware: a.rateLimits(),
	}
}

// rateLimits budgets the public endpoints per client IP. Counters live in
// Redis when it is configured so that every instance shares them.
func (a *app) rateLimits() []func(http.Handler) http.Handler {
	var store ratelimit.Store
	if a.redis != nil {
		store = ratelimitstore.NewRedis(a.redis.Client)
	} else {
		store = ratelimitstore.NewInMemory()
	}
	rl := a.cfg.RateLimit
	mw := ratelimit.New(store, a.logger,
		ratelimit.WithDisabled(rl.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New(a.registry)),
		ratelimit.WithLimit(ratelimitmodels.ClassPublic, ratelimitmodels.Limit{Requests: rl.PublicRequests, Window: rl.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassCredential, ratelimitmodels.Limit{Requests: rl.CredentialRequests, Window: rl.Window}),
	)
	return []func(http.Handler) http.Handler{
		mw.RateLimit(ratelimitmodels.ClassPublic),
		mw.RateLimitRoutes(ratelimitmodels.ClassCredential,
			"POST /api/admin/login",
			"POST /api/members/verify",
		),
	}
}

func (a *app) close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
