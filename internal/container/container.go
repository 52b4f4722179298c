// Package container is this service's dependency-injection root: it wires
// config, database, stores, directory, event bus, lifecycle and search
// services, listeners, identity resolver, websocket hub and metrics
// collector into one Container, the way the teacher's container wired
// its template/task managers and OpenFGA/Keycloak clients together.
package container

import (
	"fmt"
	"time"

	"github.com/mautops/expense-approval/internal/authz"
	"github.com/mautops/expense-approval/internal/clock"
	"github.com/mautops/expense-approval/internal/config"
	"github.com/mautops/expense-approval/internal/database"
	"github.com/mautops/expense-approval/internal/directory"
	"github.com/mautops/expense-approval/internal/events"
	"github.com/mautops/expense-approval/internal/httpapi/identity"
	"github.com/mautops/expense-approval/internal/lifecycle"
	"github.com/mautops/expense-approval/internal/listeners"
	"github.com/mautops/expense-approval/internal/metrics"
	"github.com/mautops/expense-approval/internal/search"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/mautops/expense-approval/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"
)

// Container holds every long-lived component the HTTP server and
// background workers share for the life of the process.
type Container struct {
	db        *gorm.DB
	lifecycle *lifecycle.Service
	search    *search.Service
	identity  *identity.Resolver
	hub       *websocket.Hub
	bus       *events.Bus
	outbox    *events.OutboxBus
	collector *metrics.Collector
	kafka     *kgo.Client
}

// NewContainer connects to the database (with retry, per the teacher's
// pattern), runs migrations, and wires the rest of C1-C11 around it.
func NewContainer(cfg *config.Config) (*Container, error) {
	db, err := database.ConnectWithRetry(cfg.Storage, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := database.CreateIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	expenseStore := store.New(db)
	auditStore := store.NewAuditStore(db)
	policy := authz.New()
	clk := clock.System{}

	var userDirectory directory.UserDirectory = directory.New(db)
	if cfg.Cache.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.Redis.Addr})
		ttl := time.Duration(cfg.Cache.Redis.TTLSeconds) * time.Second
		userDirectory = directory.NewCached(userDirectory, client, ttl)
	}

	bus := events.New(cfg.Events.Pool.Core, cfg.Events.QueueCapacity, time.Duration(cfg.Events.TaskTimeoutSeconds)*time.Second)
	hub := websocket.NewHub()
	go hub.Run()

	bus.Subscribe(listeners.NewAnalyticsListener())
	bus.Subscribe(listeners.NewNotificationListener(userDirectory, hub, logrus.StandardLogger()))

	c := &Container{
		db:        db,
		lifecycle: lifecycle.New(expenseStore, auditStore, policy, bus, clk),
		search:    search.New(expenseStore, policy),
		identity:  identity.NewResolver(cfg.Security.JWTSigningKey),
		hub:       hub,
		bus:       bus,
		collector: metrics.NewCollector(db, 30*time.Second),
	}

	if cfg.Events.Backend == "kafka-outbox" {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Events.Kafka.Brokers...))
		if err != nil {
			return nil, fmt.Errorf("failed to connect kafka: %w", err)
		}
		c.kafka = client
		c.outbox = events.NewOutboxBus(db, client, cfg.Events.Kafka.Topic)
	}

	c.collector.Start()
	return c, nil
}

// DB returns the underlying gorm connection.
func (c *Container) DB() *gorm.DB { return c.db }

// Lifecycle returns the C7 expense lifecycle service.
func (c *Container) Lifecycle() *lifecycle.Service { return c.lifecycle }

// Search returns the C8 search service.
func (c *Container) Search() *search.Service { return c.search }

// Identity returns the actor-resolution boundary.
func (c *Container) Identity() *identity.Resolver { return c.identity }

// Hub returns the websocket hub backing the real-time push channel.
func (c *Container) Hub() *websocket.Hub { return c.hub }

// Outbox returns the Kafka-backed outbox relay, or nil when the in-process
// bus is the configured backend.
func (c *Container) Outbox() *events.OutboxBus { return c.outbox }

// Ping satisfies httpapi.HealthChecker.
func (c *Container) Ping() error {
	if !database.CheckHealth(c.db) {
		return fmt.Errorf("database is unreachable")
	}
	return nil
}

// Close shuts the container down, releasing the database connection, the
// event bus workers, the metrics collector, and the Kafka client if any.
func (c *Container) Close() error {
	c.collector.Stop()
	c.bus.Close()
	if c.kafka != nil {
		c.kafka.Close()
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
