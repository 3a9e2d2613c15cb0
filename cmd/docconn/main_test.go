package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/docconn/pkg/connection"
)

const testConfig = `
connections:
  default:
    name: shop
    port: 27999
    uri: mongodb://localhost:27999/?serverSelectionTimeoutMS=100&connectTimeoutMS=100
    connect_timeout: 500ms
    secondaries: [replica]
  replica:
    name: shop
    host: 10.0.0.7
    secondary: true
logging:
  console:
    enabled: false
`

func runCLI(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"MONGO_URI", "MONGO_HOST", "MONGO_PORT", "MONGO_DATABASE_NAME"} {
		t.Setenv(key, "")
	}
	orig := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(orig)
		connection.Reset()
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(config), 0644))

	var out bytes.Buffer
	cmd, a := newRootCmd()
	t.Cleanup(func() { a.close(context.Background()) })
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAliases(t *testing.T) {
	out, err := runCLI(t, testConfig, "aliases")
	require.NoError(t, err)

	assert.Contains(t, out, "default\tshop\tmongodb://localhost:27999/?serverSelectionTimeoutMS=100&connectTimeoutMS=100\treads:replica\n")
	assert.Contains(t, out, "replica\tshop\t10.0.0.7:27017\tsecondary\n")
}

func TestPing_UnknownAlias(t *testing.T) {
	_, err := runCLI(t, testConfig, "ping", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, connection.ErrNotDefined)
	assert.Contains(t, err.Error(), `connection with alias "ghost" has not been defined`)
}

func TestPing_Unreachable(t *testing.T) {
	const config = `
connections:
  default:
    name: shop
    uri: mongodb://localhost:27999/?serverSelectionTimeoutMS=100&connectTimeoutMS=100
    connect_timeout: 500ms
logging:
  console:
    enabled: false
`
	_, err := runCLI(t, config, "ping", "default")
	require.Error(t, err)
	assert.ErrorIs(t, err, connection.ErrConnectFailed)
}

func TestDrop_RequiresForce(t *testing.T) {
	_, err := runCLI(t, testConfig, "drop", "default")
	assert.EqualError(t, err, `refusing to drop database "shop" of alias "default" without --force`)
	assert.False(t, connection.Default().Connected("default"))
}

func TestDrop_UnknownAlias(t *testing.T) {
	_, err := runCLI(t, testConfig, "drop", "ghost", "--force")
	assert.ErrorIs(t, err, connection.ErrNotDefined)
}

func TestInvalidConfig(t *testing.T) {
	const config = `
connections:
  default:
    name: shop
    secondaries: [missing]
`
	_, err := runCLI(t, config, "aliases")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown secondary 'missing'")
}

func TestArgsValidation(t *testing.T) {
	_, err := runCLI(t, testConfig, "collections")
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	assert.Empty(t, roles(connection.NewSettings("app")))
	assert.Equal(t, "\tsecondary reads:a,b",
		roles(connection.NewSettings("app", connection.WithSecondary(), connection.WithSecondaries("a", "b"))))
}

func TestTestdbDrop_TargetsTestDatabase(t *testing.T) {
	_, err := runCLI(t, testConfig, "testdb", "drop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop database test_shop")
}
