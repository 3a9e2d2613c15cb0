package connection

import "context"

var defaultRegistry = NewRegistry(nil)

// Default returns the process-wide registry used by the package functions.
func Default() *Registry {
	return defaultRegistry
}

func RegisterConnection(alias, name string, opts ...Option) error {
	return defaultRegistry.RegisterConnection(alias, name, opts...)
}

func Register(alias string, s Settings) error {
	return defaultRegistry.Register(alias, s)
}

func Load(settings map[string]Settings) error {
	return defaultRegistry.Load(settings)
}

func Connect(ctx context.Context, name string, opts ...Option) (*Connection, error) {
	return defaultRegistry.Connect(ctx, name, opts...)
}

func GetConnection(ctx context.Context, alias string) (*Connection, error) {
	return defaultRegistry.GetConnection(ctx, alias)
}

func GetDB(ctx context.Context, alias string) (*Database, error) {
	return defaultRegistry.GetDB(ctx, alias)
}

func Disconnect(ctx context.Context, alias string) error {
	return defaultRegistry.Disconnect(ctx, alias)
}

func DisconnectAll(ctx context.Context) error {
	return defaultRegistry.DisconnectAll(ctx)
}

func Aliases() []string {
	return defaultRegistry.Aliases()
}

func SettingsFor(alias string) (Settings, bool) {
	return defaultRegistry.Settings(alias)
}

// Reset clears the default registry. Intended for tests.
func Reset() {
	defaultRegistry.Reset()
}
