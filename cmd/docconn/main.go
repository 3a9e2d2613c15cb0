// Command docconn inspects and manages the MongoDB connections declared in
// the application config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/docconn/internal/config"
	"github.com/syntrixbase/docconn/internal/logging"
	"github.com/syntrixbase/docconn/pkg/connection"
)

const defaultTimeout = 30 * time.Second

// app carries state shared by the subcommands of one invocation.
type app struct {
	configDir string
	timeout   time.Duration

	cfg      *config.Config
	registry *connection.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	a.close(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "docconn",
		Short: "Inspect configured MongoDB connections",
		Long: `docconn reads the connections section of config.yml (and
config.local.yml) and runs one operation against a named alias.

Environment overrides for the default alias:
  MONGO_URI, MONGO_HOST, MONGO_PORT, MONGO_DATABASE_NAME`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVarP(&a.configDir, "config", "c", "config", "directory holding config.yml")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", defaultTimeout, "timeout for each database operation")

	root.AddCommand(
		a.aliasesCmd(),
		a.pingCmd(),
		a.collectionsCmd(),
		a.dropCmd(),
		a.testdbCmd(),
	)
	return root, a
}

func (a *app) load(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}

	connection.Reset()
	if err := connection.Load(cfg.Connections); err != nil {
		return fmt.Errorf("load connections: %w", err)
	}

	a.cfg = cfg
	a.registry = connection.Default()
	return nil
}

// close releases connections and log files. It runs whether or not the
// command succeeded.
func (a *app) close(ctx context.Context) {
	if a.registry != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.registry.DisconnectAll(ctx); err != nil {
			slog.Warn("Failed to close connections", "error", err)
		}
	}
	if err := logging.Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}
