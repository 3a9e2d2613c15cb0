// Package mongotest stands up and tears down throwaway MongoDB databases
// for test runs that use the connection registry.
package mongotest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/syntrixbase/docconn/pkg/connection"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// DisableEnv set to "yes" skips every Mongo-backed test run.
	DisableEnv = "DISABLE_MONGO_TESTS"
	// DatabaseNameEnv names the application database the test database derives from.
	DatabaseNameEnv = "MONGO_DATABASE_NAME"

	testPrefix     = "test_"
	defaultTimeout = 30 * time.Second
)

var ErrNoDatabaseName = errors.New("mongotest: no database name configured")

// TestDatabaseName returns the name of the test database for name.
func TestDatabaseName(name string) string {
	return testPrefix + name
}

// Config configures a Runner.
type Config struct {
	// DatabaseName is the application database name. Falls back to
	// $MONGO_DATABASE_NAME.
	DatabaseName string

	// Alias is registered against the test database. Defaults to "default".
	Alias string

	// Settings supplies host, port and credentials. Its Name is replaced.
	Settings connection.Settings

	// Registry defaults to connection.Default().
	Registry *connection.Registry

	// Setup and Teardown run before and after the Mongo database work, for
	// other backends the test run depends on.
	Setup    func(ctx context.Context) error
	Teardown func(ctx context.Context) error

	Logger  *slog.Logger
	Timeout time.Duration
}

// TestingM is the part of *testing.M the runner needs.
type TestingM interface {
	Run() int
}

// Runner creates a test database before a test run and drops it afterwards.
type Runner struct {
	cfg      Config
	registry *connection.Registry
	logger   *slog.Logger
}

// Dependency injection for testing
var dropDatabase = func(ctx context.Context, s connection.Settings, name string) error {
	client, err := mongo.Connect(ctx, connection.ClientOptions(s))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return client.Database(name).Drop(ctx)
}

func NewRunner(cfg Config) *Runner {
	if cfg.Alias == "" {
		cfg.Alias = connection.DefaultAlias
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	registry := cfg.Registry
	if registry == nil {
		registry = connection.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, registry: registry, logger: logger}
}

// Registry returns the registry the runner registers the test database in.
func (r *Runner) Registry() *connection.Registry {
	return r.registry
}

func (r *Runner) databaseName() (string, error) {
	name := r.cfg.DatabaseName
	if name == "" {
		name = os.Getenv(DatabaseNameEnv)
	}
	if name == "" {
		return "", ErrNoDatabaseName
	}
	return TestDatabaseName(name), nil
}

// SetupDatabases registers the runner alias against the test database and
// returns its name.
func (r *Runner) SetupDatabases(ctx context.Context) (string, error) {
	dbName, err := r.databaseName()
	if err != nil {
		return "", err
	}

	if r.cfg.Setup != nil {
		if err := r.cfg.Setup(ctx); err != nil {
			return "", fmt.Errorf("setup hook: %w", err)
		}
	}

	s := r.cfg.Settings
	s.Name = dbName
	if err := r.registry.Register(r.cfg.Alias, s); err != nil {
		return "", err
	}

	r.logger.Info("Creating test Mongo database", "database", dbName, "alias", r.cfg.Alias)
	return dbName, nil
}

// TeardownDatabases closes cached connections and drops dbName.
func (r *Runner) TeardownDatabases(ctx context.Context, dbName string) error {
	var errs []error
	if r.cfg.Teardown != nil {
		if err := r.cfg.Teardown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("teardown hook: %w", err))
		}
	}

	if err := r.registry.DisconnectAll(ctx); err != nil {
		errs = append(errs, err)
	}

	s, ok := r.registry.Settings(r.cfg.Alias)
	if !ok {
		s = r.cfg.Settings
		s.ApplyDefaults()
	}
	if err := dropDatabase(ctx, s, dbName); err != nil {
		errs = append(errs, fmt.Errorf("drop database %s: %w", dbName, err))
	} else {
		r.logger.Info("Dropping test Mongo database", "database", dbName)
	}
	return errors.Join(errs...)
}

// Run wraps m.Run with database setup and teardown, for use in TestMain.
func (r *Runner) Run(m TestingM) int {
	if os.Getenv(DisableEnv) == "yes" {
		r.logger.Warn("Mongo tests disabled", "env", DisableEnv)
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	dbName, err := r.SetupDatabases(ctx)
	cancel()
	if err != nil {
		r.logger.Error("Failed to set up test databases", "error", err)
		return 1
	}

	code := m.Run()

	ctx, cancel = context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	if err := r.TeardownDatabases(ctx, dbName); err != nil {
		r.logger.Error("Failed to tear down test databases", "database", dbName, "error", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// Main runs the tests of a package against a fresh test database and exits.
//
//	func TestMain(m *testing.M) {
//		mongotest.Main(m, mongotest.Config{DatabaseName: "shop"})
//	}
func Main(m TestingM, cfg Config) {
	os.Exit(NewRunner(cfg).Run(m))
}
