package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/redbco/redb-mongo/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const openKey = "open"

// Manager owns a single shared connection: one Client and the Database
// handle selected from it. The first successful Open fixes both; later
// Open calls return the cached Database whatever their arguments, until
// Close clears them.
type Manager struct {
	driver Driver
	logger *logger.Logger

	mu     sync.RWMutex
	client Client
	db     Database
	// gen is bumped by Close so an Open that was in flight across a Close
	// can tell its result is stale.
	gen uint64

	group singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for connection and listing messages.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager that connects through driver.
func NewManager(driver Driver, opts ...Option) *Manager {
	m := &Manager{driver: driver}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// safeLog logs a message if a logger is set
func (m *Manager) safeLog(level string, format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	switch level {
	case "info":
		m.logger.Info(format, args...)
	case "error":
		m.logger.Error(format, args...)
	case "warn":
		m.logger.Warn(format, args...)
	case "debug":
		m.logger.Debug(format, args...)
	}
}

// Open returns the cached Database, connecting first if there is none.
//
// Concurrent callers on a cold manager share a single connection attempt
// and all receive the same handle. The attempt runs under the context of
// the caller that started it.
func (m *Manager) Open(ctx context.Context, host, databaseName string) (Database, error) {
	if db, ok := m.Database(); ok {
		return db, nil
	}

	if databaseName == "" {
		return nil, NewConfigurationError("database", "database name is required")
	}

	v, err, _ := m.group.Do(openKey, func() (interface{}, error) {
		return m.connect(ctx, host, databaseName)
	})
	if err != nil {
		return nil, err
	}
	return v.(Database), nil
}

func (m *Manager) connect(ctx context.Context, host, databaseName string) (Database, error) {
	m.mu.RLock()
	if m.db != nil {
		db := m.db
		m.mu.RUnlock()
		return db, nil
	}
	gen := m.gen
	m.mu.RUnlock()

	url := NormalizeURL(host)
	m.safeLog("debug", "Connecting to %s", RedactURL(url))

	client, err := m.driver.Connect(ctx, url)
	if err == nil && client == nil {
		err = ErrNoClient
	}
	if err != nil {
		m.safeLog("error", "Couldn't connect to Mongo at %s: %v", RedactURL(url), err)
		return nil, NewConnectionError(url, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.safeLog("warn", "Manager closed while connecting to %s, dropping connection", RedactURL(url))
		if derr := client.Disconnect(ctx); derr != nil {
			m.safeLog("error", "Error disconnecting stale client: %v", derr)
		}
		return nil, NewConnectionError(url, ErrManagerClosed)
	}
	db := client.Database(databaseName)
	m.client = client
	m.db = db
	m.mu.Unlock()

	m.safeLog("info", "Host:        %s", RedactURL(host))
	m.safeLog("info", "Selected DB: %s", databaseName)
	return db, nil
}

// Close drops the cached handles and disconnects the client, waiting for
// the disconnect to finish. It is safe to call any number of times; only a
// call that actually had a client to disconnect can return an error, and
// the manager is cleared either way.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.db = nil
	m.gen++
	// An attempt still in flight belongs to the old generation; later
	// Opens must start their own instead of joining it.
	m.group.Forget(openKey)
	m.mu.Unlock()

	if client == nil {
		return nil
	}

	m.safeLog("info", "Closing connection")
	if err := client.Disconnect(ctx); err != nil {
		m.safeLog("error", "Error closing connection: %v", err)
		return &DatabaseError{Operation: "close", Cause: err}
	}
	return nil
}

// Database returns the cached handle, if any.
func (m *Manager) Database() (Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db, m.db != nil
}

// IsOpen reports whether a connection is cached.
func (m *Manager) IsOpen() bool {
	_, ok := m.Database()
	return ok
}

// CheckHealth pings the cached client.
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	if client == nil {
		return ErrNotConnected
	}
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// ListCollections returns the collection names of db in driver order.
// db need not be the handle cached by this manager.
func (m *Manager) ListCollections(ctx context.Context, db Database) ([]string, error) {
	if db == nil {
		return nil, NewQueryError("list_collections", "", ErrNotConnected)
	}

	m.safeLog("info", "Scanning collections in %s", db.Name())

	specs, err := db.ListCollectionSpecs(ctx)
	if err != nil {
		m.safeLog("error", "Failed to list collections in %s: %v", db.Name(), err)
		return nil, NewQueryError("list_collections", db.Name(), err)
	}

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names, nil
}

// DropCollection drops the named collection from db.
func (m *Manager) DropCollection(ctx context.Context, db Database, name string) error {
	if db == nil {
		return NewQueryError("drop_collection", "", ErrNotConnected)
	}
	if name == "" {
		return NewConfigurationError("collection", "collection name is required")
	}

	m.safeLog("info", "Dropping collection %s.%s", db.Name(), name)

	if err := db.DropCollection(ctx, name); err != nil {
		return NewQueryError("drop_collection", db.Name(), err)
	}
	return nil
}

// DropDatabase drops db entirely. The handle stays cached; MongoDB
// recreates the database on the next write.
func (m *Manager) DropDatabase(ctx context.Context, db Database) error {
	if db == nil {
		return NewQueryError("drop_database", "", ErrNotConnected)
	}

	m.safeLog("warn", "Dropping database %s", db.Name())

	if err := db.Drop(ctx); err != nil {
		return NewQueryError("drop_database", db.Name(), err)
	}
	return nil
}
