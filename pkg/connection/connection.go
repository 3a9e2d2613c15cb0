package connection

import (
	"context"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection is a live driver connection for an alias. When the alias lists
// secondaries, writes go to the primary client and reads rotate over the
// secondaries.
type Connection struct {
	alias       string
	client      *mongo.Client
	secondaries []*Connection
	next        atomic.Uint64
}

func newConnection(alias string, client *mongo.Client, secondaries []*Connection) *Connection {
	return &Connection{
		alias:       alias,
		client:      client,
		secondaries: secondaries,
	}
}

// Alias returns the alias the connection was established for.
func (c *Connection) Alias() string {
	return c.alias
}

// Client returns the primary driver client.
func (c *Connection) Client() *mongo.Client {
	return c.client
}

// Secondaries returns the read secondaries, in registration order.
func (c *Connection) Secondaries() []*Connection {
	return c.secondaries
}

// ReadClient returns the client the next read should use.
func (c *Connection) ReadClient() *mongo.Client {
	if len(c.secondaries) == 0 {
		return c.client
	}
	idx := c.next.Add(1) - 1
	return c.secondaries[idx%uint64(len(c.secondaries))].client
}

// Database returns a handle on database name served by this connection.
// The handle is not cached; use GetDB for the alias database.
func (c *Connection) Database(name string) *Database {
	return newDatabase(c.alias, name, c)
}

// DropDatabase drops database name on the primary.
func (c *Connection) DropDatabase(ctx context.Context, name string) error {
	return c.client.Database(name).Drop(ctx)
}

// Disconnect closes the primary client. Secondaries are cached under their
// own aliases and are closed through them.
func (c *Connection) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
