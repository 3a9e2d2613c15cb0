package connection

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Dependency injection for testing
var newClient = func(ctx context.Context, opts *options.ClientOptions, rp *readpref.ReadPref) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Ping the server to verify connection
	if err := client.Ping(ctx, rp); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

var pingDatabase = func(ctx context.Context, db *mongo.Database) error {
	return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// ClientOptions builds driver options for s.
func ClientOptions(s Settings) *options.ClientOptions {
	opts := options.Client()
	if s.URI != "" {
		opts.ApplyURI(s.URI)
	} else {
		opts.SetHosts([]string{s.Address()})
	}

	if opts.ConnectTimeout == nil && s.ConnectTimeout > 0 {
		opts.SetConnectTimeout(s.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout == nil && s.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(s.ConnectTimeout)
	}
	if s.PoolSize > 0 {
		opts.SetMaxPoolSize(s.PoolSize)
	}

	if s.Secondary {
		opts.SetReadPreference(readpref.SecondaryPreferred())
		if s.URI == "" {
			opts.SetDirect(true)
		}
	}

	if s.HasCredentials() {
		opts.SetAuth(options.Credential{
			Username:   s.Username,
			Password:   s.Password,
			AuthSource: s.Name,
		})
	}
	return opts
}

func pingReadPref(s Settings) *readpref.ReadPref {
	if s.Secondary {
		return readpref.SecondaryPreferred()
	}
	return readpref.Primary()
}
