package mongotest

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/docconn/pkg/connection"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIsolatedDatabaseName(t *testing.T) {
	name := IsolatedDatabaseName(t)
	assert.True(t, strings.HasPrefix(name, "test_TestIsolatedDatabaseName_"))
	assert.NotEqual(t, name, IsolatedDatabaseName(t))

	valid := regexp.MustCompile(`^test_[A-Za-z0-9_-]+_[0-9a-f]{8}$`)
	tests := []struct {
		name     string
		wantTail string
	}{
		{"nested/name with spaces", "name_with_spaces"},
		{`price $gt "x"`, `_price__gt__x_`},
		{"key:value|*?", "key_value___"},
		{"dots.and\\slashes", "dots_and_slashes"},
		{"ünïcödé ñame tail end", "n_c_d___ame_tail_end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsolatedDatabaseName(t)
			assert.Regexp(t, valid, got)
			assert.True(t, utf8.ValidString(got))
			assert.Contains(t, got, tt.wantTail)

			// prefix + at most maxNameLen runes + "_" + 8 char suffix
			assert.LessOrEqual(t, len(got), len("test_")+maxNameLen+9)
		})
	}
}

func TestClearCollections(t *testing.T) {
	registry := newLiveRegistry(t)
	conn := RequireConnection(t, registry, connection.DefaultAlias)
	db := NewIsolatedDatabase(t, conn)
	ctx := context.Background()

	for _, coll := range []string{"users", "orders"} {
		_, err := db.Collection(coll).InsertOne(ctx, bson.M{"k": coll})
		require.NoError(t, err)
	}
	if err := db.Writer().CreateCollection(ctx, "system.js"); err != nil {
		t.Skipf("server does not allow creating system.js: %v", err)
	}

	require.NoError(t, ClearCollections(ctx, db))

	names, err := db.UserCollectionNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	all, err := db.CollectionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"system.js"}, all)
}

func TestRequireConnection_SkipsWhenUnavailable(t *testing.T) {
	registry := connection.NewRegistry(nil)
	require.NoError(t, registry.Register("down", connection.Settings{
		Name:           "app",
		URI:            "mongodb://localhost:27999/?connectTimeoutMS=100&serverSelectionTimeoutMS=100",
		ConnectTimeout: 200 * time.Millisecond,
	}))

	skipped := false
	t.Run("inner", func(t *testing.T) {
		defer func() { skipped = t.Skipped() }()
		RequireConnection(t, registry, "down")
	})
	assert.True(t, skipped)
}
