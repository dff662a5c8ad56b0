package backend

import (
	"context"
	"sync"
	"sync/atomic"
)

type stubDriver struct {
	mu    sync.Mutex
	urls  []string
	calls atomic.Int32

	// gate, when set, blocks Connect until it is closed.
	gate    chan struct{}
	started chan struct{}

	err      error
	nilReply bool
	client   *stubClient
}

func newStubDriver() *stubDriver {
	return &stubDriver{client: newStubClient()}
}

func (d *stubDriver) Connect(ctx context.Context, url string) (Client, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()

	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.gate != nil {
		<-d.gate
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.nilReply {
		return nil, nil
	}
	return d.client, nil
}

func (d *stubDriver) lastURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.urls) == 0 {
		return ""
	}
	return d.urls[len(d.urls)-1]
}

type stubClient struct {
	dbs           map[string]*stubDatabase
	mu            sync.Mutex
	disconnects   atomic.Int32
	disconnectErr error
	pingErr       error
}

func newStubClient() *stubClient {
	return &stubClient{dbs: make(map[string]*stubDatabase)}
}

func (c *stubClient) Database(name string) Database {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.dbs[name]
	if !ok {
		db = &stubDatabase{name: name}
		c.dbs[name] = db
	}
	return db
}

func (c *stubClient) Ping(ctx context.Context) error {
	return c.pingErr
}

func (c *stubClient) Disconnect(ctx context.Context) error {
	c.disconnects.Add(1)
	return c.disconnectErr
}

type stubDatabase struct {
	name    string
	specs   []CollectionSpec
	listErr error
	dropErr error
	dropped []string
	gone    bool
}

func (d *stubDatabase) Name() string {
	return d.name
}

func (d *stubDatabase) ListCollectionSpecs(ctx context.Context) ([]CollectionSpec, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.specs, nil
}

func (d *stubDatabase) DropCollection(ctx context.Context, name string) error {
	if d.dropErr != nil {
		return d.dropErr
	}
	d.dropped = append(d.dropped, name)
	return nil
}

func (d *stubDatabase) Drop(ctx context.Context) error {
	if d.dropErr != nil {
		return d.dropErr
	}
	d.gone = true
	return nil
}
