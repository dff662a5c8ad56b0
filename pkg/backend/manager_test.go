package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redbco/redb-mongo/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCachesHandle(t *testing.T) {
	ctx := context.Background()
	driver := newStubDriver()
	m := NewManager(driver)

	db, err := m.Open(ctx, "localhost", "testdb")
	require.NoError(t, err)
	assert.Equal(t, "testdb", db.Name())
	assert.True(t, m.IsOpen())

	// Different arguments still return the first handle.
	again, err := m.Open(ctx, "other.example.com", "otherdb")
	require.NoError(t, err)
	assert.Same(t, db, again)
	assert.Equal(t, int32(1), driver.calls.Load())
	assert.Equal(t, "mongodb://localhost", driver.lastURL())
}

func TestOpenNormalizesHost(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{host: "db.example.com", expected: "mongodb://db.example.com"},
		{host: "mongodb://db.example.com", expected: "mongodb://db.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			driver := newStubDriver()
			m := NewManager(driver)

			_, err := m.Open(context.Background(), tt.host, "mydb")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, driver.lastURL())
		})
	}
}

func TestOpenConnectError(t *testing.T) {
	cause := errors.New("connection refused")
	driver := newStubDriver()
	driver.err = cause
	m := NewManager(driver)

	db, err := m.Open(context.Background(), "db.example.com", "mydb")
	require.Error(t, err)
	assert.Nil(t, db)
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, cause)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "mongodb://db.example.com", connErr.URL)

	assert.False(t, m.IsOpen())
	_, ok := m.Database()
	assert.False(t, ok)
	assert.ErrorIs(t, m.CheckHealth(context.Background()), ErrNotConnected)

	// A failed open leaves nothing behind, so the next one connects again.
	driver.err = nil
	_, err = m.Open(context.Background(), "db.example.com", "mydb")
	require.NoError(t, err)
	assert.Equal(t, int32(2), driver.calls.Load())
}

func TestOpenNilClient(t *testing.T) {
	driver := newStubDriver()
	driver.nilReply = true
	m := NewManager(driver)

	_, err := m.Open(context.Background(), "localhost", "testdb")
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, ErrNoClient)
	assert.False(t, m.IsOpen())
}

func TestOpenRequiresDatabaseName(t *testing.T) {
	driver := newStubDriver()
	m := NewManager(driver)

	_, err := m.Open(context.Background(), "localhost", "")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, int32(0), driver.calls.Load())
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	driver := newStubDriver()
	m := NewManager(driver)

	// Never opened.
	assert.NoError(t, m.Close(ctx))

	_, err := m.Open(ctx, "localhost", "testdb")
	require.NoError(t, err)

	assert.NoError(t, m.Close(ctx))
	assert.NoError(t, m.Close(ctx))
	assert.Equal(t, int32(1), driver.client.disconnects.Load())
	assert.False(t, m.IsOpen())
}

func TestCloseDisconnectError(t *testing.T) {
	ctx := context.Background()
	driver := newStubDriver()
	driver.client.disconnectErr = errors.New("socket already closed")
	m := NewManager(driver)

	_, err := m.Open(ctx, "localhost", "testdb")
	require.NoError(t, err)

	err = m.Close(ctx)
	require.Error(t, err)
	var dbErr *DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "close", dbErr.Operation)

	// State is cleared even though the disconnect failed.
	assert.False(t, m.IsOpen())
	assert.NoError(t, m.Close(ctx))
}

func TestReopenAfterClose(t *testing.T) {
	ctx := context.Background()
	driver := newStubDriver()
	m := NewManager(driver)

	_, err := m.Open(ctx, "localhost", "testdb")
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))

	_, ok := m.Database()
	assert.False(t, ok)

	db, err := m.Open(ctx, "localhost", "otherdb")
	require.NoError(t, err)
	assert.Equal(t, "otherdb", db.Name())
	assert.Equal(t, int32(2), driver.calls.Load())
}

func TestConcurrentOpenSharesOneConnect(t *testing.T) {
	driver := newStubDriver()
	driver.gate = make(chan struct{})
	driver.started = make(chan struct{}, 4)
	m := NewManager(driver)

	const callers = 2
	results := make([]Database, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Open(context.Background(), "localhost", "testdb")
		}(i)
	}

	select {
	case <-driver.started:
	case <-time.After(5 * time.Second):
		t.Fatal("connect was never called")
	}
	// Give the second caller time to join the in-flight attempt.
	time.Sleep(50 * time.Millisecond)
	close(driver.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.Same(t, results[0], results[1])
	assert.Equal(t, int32(1), driver.calls.Load())
}

func TestCloseDuringOpen(t *testing.T) {
	driver := newStubDriver()
	driver.gate = make(chan struct{})
	driver.started = make(chan struct{}, 1)
	m := NewManager(driver)

	done := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background(), "localhost", "testdb")
		done <- err
	}()

	<-driver.started
	require.NoError(t, m.Close(context.Background()))
	close(driver.gate)

	err := <-done
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.False(t, m.IsOpen())
	assert.Equal(t, int32(1), driver.client.disconnects.Load())
}

func TestOpenAfterCloseStartsFreshConnect(t *testing.T) {
	driver := newStubDriver()
	driver.gate = make(chan struct{})
	driver.started = make(chan struct{}, 2)
	m := NewManager(driver)

	staleDone := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background(), "localhost", "testdb")
		staleDone <- err
	}()
	<-driver.started

	require.NoError(t, m.Close(context.Background()))

	// Opened after Close returned, while the earlier connect still blocks.
	type result struct {
		db  Database
		err error
	}
	freshDone := make(chan result, 1)
	go func() {
		db, err := m.Open(context.Background(), "localhost", "testdb")
		freshDone <- result{db: db, err: err}
	}()

	select {
	case <-driver.started:
	case <-time.After(5 * time.Second):
		t.Fatal("open after close did not start a new connect")
	}
	close(driver.gate)

	assert.ErrorIs(t, <-staleDone, ErrManagerClosed)

	fresh := <-freshDone
	require.NoError(t, fresh.err)
	assert.Equal(t, "testdb", fresh.db.Name())
	assert.Equal(t, int32(2), driver.calls.Load())

	cached, ok := m.Database()
	require.True(t, ok)
	assert.Same(t, fresh.db, cached)
}

func TestListCollections(t *testing.T) {
	m := NewManager(newStubDriver())
	db := &stubDatabase{
		name: "testdb",
		specs: []CollectionSpec{
			{Name: "users", Type: "collection"},
			{Name: "orders", Type: "collection"},
		},
	}

	names, err := m.ListCollections(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, names)
}

func TestListCollectionsEmpty(t *testing.T) {
	m := NewManager(newStubDriver())

	names, err := m.ListCollections(context.Background(), &stubDatabase{name: "empty"})
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestListCollectionsError(t *testing.T) {
	m := NewManager(newStubDriver())
	cause := errors.New("not authorized on testdb")
	db := &stubDatabase{name: "testdb", listErr: cause}

	names, err := m.ListCollections(context.Background(), db)
	require.Error(t, err)
	assert.Nil(t, names)
	assert.True(t, IsQueryError(err))
	assert.ErrorIs(t, err, cause)

	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, "list_collections", queryErr.Operation)
	assert.Equal(t, "testdb", queryErr.Database)
}

func TestListCollectionsNilHandle(t *testing.T) {
	m := NewManager(newStubDriver())

	_, err := m.ListCollections(context.Background(), nil)
	assert.True(t, IsQueryError(err))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDropOperations(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newStubDriver())
	db := &stubDatabase{name: "testdb"}

	require.NoError(t, m.DropCollection(ctx, db, "users"))
	assert.Equal(t, []string{"users"}, db.dropped)

	assert.True(t, IsConfigurationError(m.DropCollection(ctx, db, "")))

	require.NoError(t, m.DropDatabase(ctx, db))
	assert.True(t, db.gone)

	failing := &stubDatabase{name: "testdb", dropErr: errors.New("boom")}
	assert.True(t, IsQueryError(m.DropCollection(ctx, failing, "users")))
	assert.True(t, IsQueryError(m.DropDatabase(ctx, failing)))
}

func TestCheckHealth(t *testing.T) {
	ctx := context.Background()
	driver := newStubDriver()
	m := NewManager(driver)

	assert.ErrorIs(t, m.CheckHealth(ctx), ErrNotConnected)

	_, err := m.Open(ctx, "localhost", "testdb")
	require.NoError(t, err)
	assert.NoError(t, m.CheckHealth(ctx))

	driver.client.pingErr = errors.New("server selection timeout")
	assert.ErrorContains(t, m.CheckHealth(ctx), "health check failed")
}

func TestOpenLogsHostAndDatabase(t *testing.T) {
	log := logger.New("backend-test", "1.0.0")
	log.DisableConsoleOutput()
	entries := log.Subscribe()

	m := NewManager(newStubDriver(), WithLogger(log))
	_, err := m.Open(context.Background(), "admin:secret@db.example.com", "mydb")
	require.NoError(t, err)

	var messages []string
	for len(entries) > 0 {
		entry := <-entries
		if entry.Level == logger.LevelInfo {
			messages = append(messages, entry.Message)
		}
	}

	// The host is logged as given, without the scheme added for the driver.
	require.Len(t, messages, 2)
	assert.Equal(t, "Host:        admin:xxxxx@db.example.com", messages[0])
	assert.Equal(t, "Selected DB: mydb", messages[1])
}
