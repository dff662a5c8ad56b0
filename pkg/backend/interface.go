package backend

import "context"

// Driver establishes transport connections to a document database.
// Implementations live in sub-packages (see backend/mongodb).
type Driver interface {
	// Connect opens a connection to url. A nil Client with a nil error is
	// treated by the manager as a failed connection.
	Connect(ctx context.Context, url string) (Client, error)
}

// Client is a live transport-level connection.
type Client interface {
	// Database returns a handle scoped to the named database.
	Database(name string) Database

	// Ping checks if the server is reachable over this client.
	Ping(ctx context.Context) error

	// Disconnect releases the connection and blocks until it is released
	// or ctx is done.
	Disconnect(ctx context.Context) error
}

// Database is a handle scoped to one named database within a client.
type Database interface {
	// Name returns the database name the handle was selected with.
	Name() string

	// ListCollectionSpecs returns one entry per collection, in driver order.
	ListCollectionSpecs(ctx context.Context) ([]CollectionSpec, error)

	// DropCollection drops the named collection.
	DropCollection(ctx context.Context, name string) error

	// Drop drops the whole database.
	Drop(ctx context.Context) error
}

// CollectionSpec describes one collection as reported by the driver.
type CollectionSpec struct {
	Name     string
	Type     string
	ReadOnly bool
}
