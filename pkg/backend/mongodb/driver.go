package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/redbco/redb-mongo/pkg/backend"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Name is the registry name of this backend.
const Name = "mongodb"

const defaultConnectTimeout = 10 * time.Second

func init() {
	backend.Register(Name, func(opts backend.DriverOptions) backend.Driver {
		var driverOpts []Option
		if opts.ConnectTimeoutSeconds > 0 {
			driverOpts = append(driverOpts, WithConnectTimeout(time.Duration(opts.ConnectTimeoutSeconds)*time.Second))
		}
		if opts.AppName != "" {
			driverOpts = append(driverOpts, WithAppName(opts.AppName))
		}
		return NewDriver(driverOpts...)
	})
}

// Driver implements backend.Driver on top of the official MongoDB driver.
type Driver struct {
	connectTimeout         time.Duration
	serverSelectionTimeout time.Duration
	appName                string
}

// Option configures a Driver.
type Option func(*Driver)

// WithConnectTimeout bounds both dialing and the initial ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(drv *Driver) {
		drv.connectTimeout = d
	}
}

// WithServerSelectionTimeout bounds how long an operation waits for a usable server.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(drv *Driver) {
		drv.serverSelectionTimeout = d
	}
}

// WithAppName sets the application name reported to the server.
func WithAppName(name string) Option {
	return func(drv *Driver) {
		drv.appName = name
	}
}

// NewDriver creates a MongoDB driver.
func NewDriver(opts ...Option) *Driver {
	drv := &Driver{connectTimeout: defaultConnectTimeout}
	for _, opt := range opts {
		opt(drv)
	}
	return drv
}

func (drv *Driver) clientOptions(url string) *options.ClientOptions {
	clientOptions := options.Client().ApplyURI(url)
	if drv.connectTimeout > 0 {
		clientOptions.SetConnectTimeout(drv.connectTimeout)
	}
	if drv.serverSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(drv.serverSelectionTimeout)
	}
	if drv.appName != "" {
		clientOptions.SetAppName(drv.appName)
	}
	return clientOptions
}

// Connect creates a client for url and pings the primary before returning it.
func (drv *Driver) Connect(ctx context.Context, url string) (backend.Client, error) {
	client, err := mongo.Connect(drv.clientOptions(url))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx := ctx
	if drv.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, drv.connectTimeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &Client{client: client}, nil
}

// Client wraps *mongo.Client.
type Client struct {
	client *mongo.Client
}

// Database returns a handle to the named database.
func (c *Client) Database(name string) backend.Database {
	return &Database{db: c.client.Database(name)}
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Disconnect closes all sockets of the client.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database wraps *mongo.Database.
type Database struct {
	db *mongo.Database
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.db.Name()
}

// ListCollectionSpecs lists every collection in the database.
func (d *Database) ListCollectionSpecs(ctx context.Context) ([]backend.CollectionSpec, error) {
	specs, err := d.db.ListCollectionSpecifications(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	return toCollectionSpecs(specs), nil
}

// DropCollection drops the named collection. Dropping a missing collection is not an error.
func (d *Database) DropCollection(ctx context.Context, name string) error {
	return d.db.Collection(name).Drop(ctx)
}

// Drop drops the database.
func (d *Database) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

func toCollectionSpecs(specs []mongo.CollectionSpecification) []backend.CollectionSpec {
	out := make([]backend.CollectionSpec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, backend.CollectionSpec{
			Name:     spec.Name,
			Type:     spec.Type,
			ReadOnly: spec.ReadOnly,
		})
	}
	return out
}
