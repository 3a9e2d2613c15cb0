package mongotest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/syntrixbase/docconn/pkg/connection"
)

const maxNameLen = 20

// ClearCollections drops every non-system collection of db.
func ClearCollections(ctx context.Context, db *connection.Database) error {
	names, err := db.UserCollectionNames(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	var errs []error
	for _, name := range names {
		if err := db.DropCollection(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("drop collection %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RequireConnection returns the connection for alias, skipping the test when
// the server cannot be reached.
func RequireConnection(t testing.TB, registry *connection.Registry, alias string) *connection.Connection {
	t.Helper()
	if registry == nil {
		registry = connection.Default()
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	conn, err := registry.GetConnection(ctx, alias)
	if errors.Is(err, connection.ErrConnectFailed) {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err != nil {
		t.Fatalf("get connection %s: %v", alias, err)
	}
	return conn
}

// IsolatedDatabaseName returns a database name unique to the test. Runes
// MongoDB rejects in database names, and anything else outside
// [A-Za-z0-9_-], become underscores; only the last maxNameLen runes of the
// test name are kept.
func IsolatedDatabaseName(t testing.TB) string {
	safe := []rune(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, t.Name()))
	if len(safe) > maxNameLen {
		safe = safe[len(safe)-maxNameLen:]
	}
	return fmt.Sprintf("%s%s_%s", testPrefix, string(safe), uuid.NewString()[:8])
}

// NewIsolatedDatabase returns a database private to the test, dropped when
// the test finishes.
func NewIsolatedDatabase(t testing.TB, conn *connection.Connection) *connection.Database {
	t.Helper()
	db := conn.Database(IsolatedDatabaseName(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}
