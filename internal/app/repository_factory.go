package app

import (
	"fmt"
	"log/slog"
	"time"

	planchangeDomain "github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	planchangePersistence "github.com/felixgeelhaar/aromabox/internal/planchange/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/lock"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/outbox"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	subscriptionPersistence "github.com/felixgeelhaar/aromabox/internal/subscription/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
)

// lockTTL bounds how long a crashed process can hold an account lock.
const lockTTL = 15 * time.Second

// RepositoryFactory picks storage backends. A nil connection selects the
// in-memory implementations; a nil Redis client keeps workflows in the
// database and locks in-process.
type RepositoryFactory struct {
	conn   database.Connection
	redis  *redis.Client
	clock  sharedDomain.Clock
	logger *slog.Logger
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection, redisClient *redis.Client, clock sharedDomain.Clock, logger *slog.Logger) *RepositoryFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryFactory{conn: conn, redis: redisClient, clock: clock, logger: logger}
}

// Driver reports the database driver, or "memory" without a connection.
func (f *RepositoryFactory) Driver() string {
	if f.conn == nil {
		return "memory"
	}
	return f.conn.Driver().String()
}

// SubscriptionRepository creates the subscription store for the configured driver.
func (f *RepositoryFactory) SubscriptionRepository() (subscriptionDomain.Repository, error) {
	if f.conn == nil {
		return subscriptionPersistence.NewMemoryRepository(), nil
	}
	if !f.conn.Driver().IsValid() {
		return nil, fmt.Errorf("unsupported driver: %s", f.conn.Driver())
	}
	return subscriptionPersistence.NewSQLRepository(f.conn), nil
}

// OutboxRepository creates the outbox for the configured driver.
func (f *RepositoryFactory) OutboxRepository() (outbox.Repository, error) {
	if f.conn == nil {
		return outbox.NewMemoryRepository(), nil
	}
	if !f.conn.Driver().IsValid() {
		return nil, fmt.Errorf("unsupported driver: %s", f.conn.Driver())
	}
	return outbox.NewSQLRepository(f.conn), nil
}

// UnitOfWork returns a transactional unit of work for SQL drivers. Memory
// mode has no transactions.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	if f.conn == nil {
		return sharedApplication.NoopUnitOfWork{}
	}
	return database.NewUnitOfWork(f.conn)
}

// WorkflowStore prefers Redis so abandoned proposals expire on their own.
func (f *RepositoryFactory) WorkflowStore(retention time.Duration) planchangeDomain.Store {
	switch {
	case f.redis != nil:
		return planchangePersistence.NewRedisStore(f.redis, f.clock, retention)
	case f.conn != nil:
		return planchangePersistence.NewSQLStore(f.conn, f.clock)
	default:
		return planchangePersistence.NewMemoryStore(f.clock)
	}
}

// Locker serializes writers per account. Redis makes the lock hold across
// processes; otherwise it only covers this process.
func (f *RepositoryFactory) Locker() sharedApplication.Locker {
	if f.redis != nil {
		return lock.NewRedisLocker(f.redis, lockTTL, f.logger)
	}
	return lock.NewMemoryLocker()
}
