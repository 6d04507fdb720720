package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	catalogInfra "github.com/felixgeelhaar/aromabox/internal/catalog/infrastructure"
	planchangeCommands "github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	planchangeQueries "github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	planchangeDomain "github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	"github.com/felixgeelhaar/aromabox/internal/planchange/infrastructure/payment"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/resilience"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/subscribers"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  sharedDomain.Clock

	// Observability
	Metrics    observability.Metrics
	Prometheus *observability.PrometheusMetrics
	Health     *observability.Health

	// Connections; either may be nil
	DBConn      database.Connection
	RedisClient *redis.Client

	// Reference data and policies
	Catalog catalogDomain.Provider
	Prices  *subscriptionDomain.PriceTable
	Policy  subscriptionDomain.EditPolicy

	// Storage
	SubscriptionRepo subscriptionDomain.Repository
	OutboxRepo       outbox.Repository
	WorkflowStore    planchangeDomain.Store
	UnitOfWork       sharedApplication.UnitOfWork
	Locker           sharedApplication.Locker

	// Payments
	PaymentGateway *payment.ResilientGateway

	// Subscription command handlers
	CreateSubscriptionHandler *subscriptionCommands.CreateSubscriptionHandler
	SetDeviceOilHandler       *subscriptionCommands.SetDeviceOilHandler
	ChangePlanHandler         *subscriptionCommands.ChangePlanHandler

	// Subscription query handlers
	GetSubscriptionSummaryHandler *subscriptionQueries.GetSubscriptionSummaryHandler
	GetMonthlySelectionHandler    *subscriptionQueries.GetMonthlySelectionHandler
	GetTimelineHandler            *subscriptionQueries.GetTimelineHandler

	// Plan change handlers
	ProposePlanHandler      *planchangeCommands.ProposePlanHandler
	ConfirmPlanHandler      *planchangeCommands.ConfirmPlanHandler
	SubmitPaymentHandler    *planchangeCommands.SubmitPaymentHandler
	CancelPlanChangeHandler *planchangeCommands.CancelPlanChangeHandler
	GetWorkflowHandler      *planchangeQueries.GetWorkflowHandler

	// Event delivery
	EventPublisher    eventbus.Publisher
	InProcessEventBus *eventbus.InProcessBus
	ChangeSubscriber  *subscribers.ChangeSubscriber
	OutboxProcessor   *outbox.Processor
	OutboxCleaner     *outbox.Cleaner
}

// NewContainer connects to the configured backends and wires all
// dependencies. An empty DATABASE_URL selects the local SQLite file.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := database.Open(ctx, database.Config{
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database", "driver", conn.Driver())

	ran, err := migrations.Apply(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(ran) > 0 {
		logger.Info("applied migrations", "versions", ran)
	}

	redisClient, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c, err := newContainer(cfg, logger, conn, redisClient, sharedDomain.SystemClock{})
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// connectRedis is optional in development: a missing or unreachable server
// falls back to database-backed workflows and in-process locks.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		logger.Warn("invalid Redis URL, using in-process fallbacks", "error", err)
		return nil, nil
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("Redis not available, using in-process fallbacks", "error", err)
		return nil, nil
	}
	logger.Info("connected to Redis")
	return client, nil
}

// newContainer wires everything on top of already opened connections. A
// nil conn selects in-memory storage.
func newContainer(cfg *config.Config, logger *slog.Logger, conn database.Connection, redisClient *redis.Client, clock sharedDomain.Clock) (*Container, error) {
	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Clock:       clock,
		DBConn:      conn,
		RedisClient: redisClient,
		Health:      observability.NewHealth(),
	}

	c.Prometheus = observability.NewPrometheusMetrics()
	c.Metrics = c.Prometheus
	if conn != nil {
		c.Health.Register("database", observability.PingCheck(conn.Ping, observability.HealthStatusUnhealthy))
	}
	if redisClient != nil {
		c.Health.Register("redis", observability.PingCheck(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}, observability.HealthStatusDegraded))
	}

	// Policies
	tiers, err := subscriptionDomain.ParsePriceTiers(cfg.PriceTiers)
	if err != nil {
		return c, fmt.Errorf("PRICE_TIERS: %w", err)
	}
	if c.Prices, err = subscriptionDomain.NewPriceTable(tiers); err != nil {
		return c, fmt.Errorf("PRICE_TIERS: %w", err)
	}
	c.Policy = subscriptionDomain.EditPolicy{EditDays: cfg.EditDays, Location: cfg.Location()}

	// Catalog
	if c.Catalog, err = newCatalog(cfg, redisClient, logger); err != nil {
		return c, err
	}

	// Storage
	factory := NewRepositoryFactory(conn, redisClient, clock, logger)
	if c.SubscriptionRepo, err = factory.SubscriptionRepository(); err != nil {
		return c, fmt.Errorf("failed to create subscription repository: %w", err)
	}
	if c.OutboxRepo, err = factory.OutboxRepository(); err != nil {
		return c, fmt.Errorf("failed to create outbox repository: %w", err)
	}
	c.UnitOfWork = factory.UnitOfWork()
	c.Locker = factory.Locker()
	c.WorkflowStore = factory.WorkflowStore(cfg.WorkflowTTL)

	// Payments
	declined := make([]planchangeDomain.PaymentMethod, 0, len(cfg.DeclinedPaymentMethods))
	for _, name := range cfg.DeclinedPaymentMethods {
		method, err := planchangeDomain.ParsePaymentMethod(name)
		if err != nil {
			return c, fmt.Errorf("DECLINED_PAYMENT_METHODS: %w", err)
		}
		declined = append(declined, method)
	}
	c.PaymentGateway = payment.NewResilientGateway(
		payment.NewSimulatedGateway(declined, clock, logger),
		guardConfig(cfg, "payments"),
		logger,
	)

	// Subscription handlers
	c.CreateSubscriptionHandler = subscriptionCommands.NewCreateSubscriptionHandler(
		c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.Locker, c.Catalog, clock, c.Policy, c.Metrics, logger,
	)
	c.SetDeviceOilHandler = subscriptionCommands.NewSetDeviceOilHandler(
		c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.Locker, c.Catalog, clock, c.Policy, c.Metrics, logger,
	)
	c.ChangePlanHandler = subscriptionCommands.NewChangePlanHandler(
		c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.Locker, c.Catalog, clock, c.Policy, c.Metrics, logger,
	)
	c.GetSubscriptionSummaryHandler = subscriptionQueries.NewGetSubscriptionSummaryHandler(c.SubscriptionRepo, clock, c.Policy)
	c.GetMonthlySelectionHandler = subscriptionQueries.NewGetMonthlySelectionHandler(c.SubscriptionRepo, c.Catalog, c.Prices, clock, c.Policy)
	c.GetTimelineHandler = subscriptionQueries.NewGetTimelineHandler(c.SubscriptionRepo, clock, c.Policy)

	// Plan change handlers
	c.ProposePlanHandler = planchangeCommands.NewProposePlanHandler(
		c.SubscriptionRepo, c.Catalog, c.WorkflowStore, c.Prices, clock, cfg.WorkflowTTL, c.Metrics, logger,
	)
	c.ConfirmPlanHandler = planchangeCommands.NewConfirmPlanHandler(c.WorkflowStore, clock, c.Metrics, logger)
	c.SubmitPaymentHandler = planchangeCommands.NewSubmitPaymentHandler(
		c.SubscriptionRepo, c.WorkflowStore, c.PaymentGateway, c.Locker, c.UnitOfWork, c.ChangePlanHandler, clock, c.Metrics, logger,
	)
	c.CancelPlanChangeHandler = planchangeCommands.NewCancelPlanChangeHandler(c.WorkflowStore, c.Locker, clock, c.Metrics, logger)
	c.GetWorkflowHandler = planchangeQueries.NewGetWorkflowHandler(c.WorkflowStore)

	// Event delivery: RabbitMQ when configured, otherwise in-process
	c.ChangeSubscriber = subscribers.NewChangeSubscriber(c.Metrics, logger)
	c.EventPublisher = c.newPublisher()
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval:     cfg.OutboxPollInterval,
		BatchSize:        cfg.OutboxBatchSize,
		MaxRetries:       cfg.OutboxMaxRetries,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}, clock, c.Metrics, logger)
	c.OutboxCleaner = outbox.NewCleaner(c.OutboxRepo, time.Duration(cfg.OutboxRetentionDays)*24*time.Hour, clock, logger)

	logger.Info("container initialized",
		"storage", factory.Driver(),
		"redis", redisClient != nil,
		"edit_days", c.Policy.EditDays,
		"price_tiers", subscriptionDomain.FormatPriceTiers(c.Prices.Tiers()),
	)
	return c, nil
}

func (c *Container) newPublisher() eventbus.Publisher {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			return publisher
		}
		c.Logger.Warn("RabbitMQ not available, delivering events in-process", "error", err)
	}
	c.InProcessEventBus = eventbus.NewInProcessBus(c.Logger)
	c.InProcessEventBus.RegisterConsumer(c.ChangeSubscriber)
	return c.InProcessEventBus
}

// newCatalog loads the catalog file (or the embedded default), caches it in
// Redis when available and bounds every call with a breaker.
func newCatalog(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (catalogDomain.Provider, error) {
	var (
		static *catalogInfra.StaticProvider
		err    error
	)
	if cfg.CatalogPath != "" {
		static, err = catalogInfra.LoadCatalogFile(cfg.CatalogPath)
	} else {
		static, err = catalogInfra.NewDefaultProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var provider catalogDomain.Provider = static
	if redisClient != nil {
		provider = catalogInfra.NewCachedProvider(provider, redisClient, cfg.CatalogCacheTTL, logger)
	}
	return catalogInfra.NewResilientProvider(provider, guardConfig(cfg, "catalog"), logger), nil
}

func guardConfig(cfg *config.Config, name string) resilience.Config {
	gc := resilience.DefaultConfig(name)
	if cfg.DependencyTimeout > 0 {
		gc.Timeout = cfg.DependencyTimeout
	}
	if cfg.BreakerFailureThreshold > 0 {
		gc.FailureThreshold = uint32(cfg.BreakerFailureThreshold)
	}
	if cfg.BreakerOpenTimeout > 0 {
		gc.OpenTimeout = cfg.BreakerOpenTimeout
	}
	return gc
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database", "error", err)
		}
	}
}
