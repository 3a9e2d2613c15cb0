package connection

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Database is a database handle bound to a connection.
type Database struct {
	alias string
	name  string
	conn  *Connection
	db    *mongo.Database
}

func newDatabase(alias, name string, conn *Connection) *Database {
	return &Database{
		alias: alias,
		name:  name,
		conn:  conn,
		db:    conn.Client().Database(name),
	}
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) Alias() string {
	return d.alias
}

// Connection returns the connection the handle was opened on.
func (d *Database) Connection() *Connection {
	return d.conn
}

// Writer returns the database on the primary.
func (d *Database) Writer() *mongo.Database {
	return d.db
}

// Reader returns the database on the next read client.
func (d *Database) Reader() *mongo.Database {
	client := d.conn.ReadClient()
	if client == d.conn.Client() {
		return d.db
	}
	return client.Database(d.name)
}

// Collection returns collection name on the primary.
func (d *Database) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// CollectionNames lists the collections of the database.
func (d *Database) CollectionNames(ctx context.Context) ([]string, error) {
	return d.db.ListCollectionNames(ctx, bson.D{})
}

// UserCollectionNames lists collections that are not system collections.
func (d *Database) UserCollectionNames(ctx context.Context) ([]string, error) {
	names, err := d.CollectionNames(ctx)
	if err != nil {
		return nil, err
	}
	return userCollections(names), nil
}

func userCollections(names []string) []string {
	out := names[:0]
	for _, name := range names {
		if IsSystemCollection(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (d *Database) DropCollection(ctx context.Context, name string) error {
	return d.db.Collection(name).Drop(ctx)
}

// Drop drops the whole database.
func (d *Database) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

// IsSystemCollection reports whether name is a server-managed collection
// such as system.indexes.
func IsSystemCollection(name string) bool {
	return strings.HasPrefix(name, "system.")
}
