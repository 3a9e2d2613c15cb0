// Package connection keeps named MongoDB connection settings and lazily opens
// the connections and database handles they describe.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const disconnectTimeout = 5 * time.Second

// Registry maps aliases to connection settings and caches the connections
// and database handles established for them.
type Registry struct {
	mu          sync.Mutex
	settings    map[string]Settings
	connections map[string]*Connection
	dbs         map[string]*Database
	logger      *slog.Logger

	// gens changes whenever an alias is registered or invalidated, so a dial
	// that started before the change is not cached.
	gens  map[string]uint64
	seq   uint64
	group singleflight.Group
}

// errStale marks a dial or database open overtaken by re-registration or
// invalidation of its alias.
var errStale = errors.New("connection superseded")

// NewRegistry creates an empty registry. A nil logger logs through slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		settings:    make(map[string]Settings),
		connections: make(map[string]*Connection),
		dbs:         make(map[string]*Database),
		logger:      logger,
		gens:        make(map[string]uint64),
	}
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// RegisterConnection registers database name under alias.
func (r *Registry) RegisterConnection(alias, name string, opts ...Option) error {
	return r.Register(alias, NewSettings(name, opts...))
}

// Register adds or replaces the settings of alias. Replacing the settings of
// a connected alias with different ones forgets its cached connection and
// database, and those of every alias reading from it.
func (r *Registry) Register(alias string, s Settings) error {
	s = s.clone()
	s.ApplyDefaults()
	if err := s.Validate(alias); err != nil {
		return err
	}

	r.mu.Lock()
	var stale []*Connection
	if prev, ok := r.settings[alias]; ok {
		if prev.equal(s) {
			r.mu.Unlock()
			return nil
		}
		r.invalidateLocked(alias, &stale)
	}
	r.settings[alias] = s
	r.bumpLocked(alias)
	r.mu.Unlock()

	r.log().Debug("Registered connection", "alias", alias, "database", s.Name, "secondary", s.Secondary, "secondaries", s.Secondaries)
	if err := disconnectAll(stale); err != nil {
		r.log().Warn("Failed to close replaced connection", "alias", alias, "error", err)
	}
	return nil
}

// Load registers every entry of settings, in alias order.
func (r *Registry) Load(settings map[string]Settings) error {
	for _, alias := range slices.Sorted(maps.Keys(settings)) {
		if err := r.Register(alias, settings[alias]); err != nil {
			return err
		}
	}
	return nil
}

// Settings returns the settings registered under alias.
func (r *Registry) Settings(alias string) (Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[alias]
	if !ok {
		return Settings{}, false
	}
	return s.clone(), true
}

// Aliases returns the registered aliases, sorted.
func (r *Registry) Aliases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.settings))
}

// Connected reports whether alias has a cached connection.
func (r *Registry) Connected(alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.connections[alias]
	return ok
}

// Connect registers name as the default connection and returns it.
func (r *Registry) Connect(ctx context.Context, name string, opts ...Option) (*Connection, error) {
	if err := r.RegisterConnection(DefaultAlias, name, opts...); err != nil {
		return nil, err
	}
	return r.GetConnection(ctx, DefaultAlias)
}

// GetConnection returns the connection for alias, establishing it and its
// secondaries on first use. Concurrent first lookups of one alias share a
// single dial; lookups of other aliases are not held up by it.
func (r *Registry) GetConnection(ctx context.Context, alias string) (*Connection, error) {
	for {
		r.mu.Lock()
		if conn, ok := r.connections[alias]; ok {
			r.mu.Unlock()
			return conn, nil
		}
		s, ok := r.settings[alias]
		if !ok {
			r.mu.Unlock()
			return nil, notDefinedError(alias)
		}
		if err := r.checkSecondariesLocked(alias, make(map[string]bool)); err != nil {
			r.mu.Unlock()
			return nil, err
		}
		gen := r.gens[alias]
		r.mu.Unlock()

		v, err := r.share(ctx, fmt.Sprintf("conn/%s/%d", alias, gen), func() (any, error) {
			return r.establish(ctx, alias, s, gen)
		})
		if errors.Is(err, errStale) {
			continue
		}
		if err != nil {
			return nil, asConnectionError(alias, err)
		}
		return v.(*Connection), nil
	}
}

// checkSecondariesLocked verifies that every secondary reachable from alias
// is registered, marked secondary and free of cycles.
func (r *Registry) checkSecondariesLocked(alias string, path map[string]bool) error {
	if path[alias] {
		return cycleError(alias)
	}
	path[alias] = true
	defer delete(path, alias)

	for _, secAlias := range r.settings[alias].Secondaries {
		secSettings, ok := r.settings[secAlias]
		if !ok {
			return notDefinedError(secAlias)
		}
		if !secSettings.Secondary {
			return notSecondaryError(alias, secAlias)
		}
		if err := r.checkSecondariesLocked(secAlias, path); err != nil {
			return err
		}
	}
	return nil
}

// establish dials alias with s. The result is cached only while gen is still
// the alias generation; otherwise the client is closed and errStale returned.
func (r *Registry) establish(ctx context.Context, alias string, s Settings, gen uint64) (*Connection, error) {
	r.mu.Lock()
	if conn, ok := r.connections[alias]; ok {
		r.mu.Unlock()
		return conn, nil
	}
	r.mu.Unlock()

	secondaries := make([]*Connection, 0, len(s.Secondaries))
	for _, secAlias := range s.Secondaries {
		sec, err := r.GetConnection(ctx, secAlias)
		if err != nil {
			return nil, err
		}
		secondaries = append(secondaries, sec)
	}

	dialCtx := ctx
	if s.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.ConnectTimeout)
		defer cancel()
	}
	client, err := newClient(dialCtx, ClientOptions(s), pingReadPref(s))
	if err != nil {
		r.log().Error("Failed to connect", "alias", alias, "error", err)
		return nil, connectError(alias, err)
	}
	conn := newConnection(alias, client, secondaries)

	r.mu.Lock()
	current := r.gens[alias] == gen
	for _, sec := range secondaries {
		if r.connections[sec.alias] != sec {
			current = false
		}
	}
	if !current {
		r.mu.Unlock()
		if err := disconnectAll([]*Connection{conn}); err != nil {
			r.log().Warn("Failed to close superseded connection", "alias", alias, "error", err)
		}
		return nil, errStale
	}
	r.connections[alias] = conn
	r.mu.Unlock()

	r.log().Info("Connected", "alias", alias, "secondary", s.Secondary, "secondaries", len(secondaries))
	return conn, nil
}

// GetDB returns the database handle for alias, authenticating on first use
// when credentials are configured.
func (r *Registry) GetDB(ctx context.Context, alias string) (*Database, error) {
	for {
		r.mu.Lock()
		if db, ok := r.dbs[alias]; ok {
			r.mu.Unlock()
			return db, nil
		}
		r.mu.Unlock()

		conn, err := r.GetConnection(ctx, alias)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		s, ok := r.settings[alias]
		gen := r.gens[alias]
		current := r.connections[alias] == conn
		r.mu.Unlock()
		if !ok {
			return nil, notDefinedError(alias)
		}
		if !current {
			continue
		}

		v, err := r.share(ctx, fmt.Sprintf("db/%s/%d", alias, gen), func() (any, error) {
			return r.openDatabase(ctx, alias, s, conn, gen)
		})
		if errors.Is(err, errStale) {
			continue
		}
		if err != nil {
			return nil, asConnectionError(alias, err)
		}
		return v.(*Database), nil
	}
}

func (r *Registry) openDatabase(ctx context.Context, alias string, s Settings, conn *Connection, gen uint64) (*Database, error) {
	r.mu.Lock()
	if db, ok := r.dbs[alias]; ok {
		r.mu.Unlock()
		return db, nil
	}
	r.mu.Unlock()

	db := newDatabase(alias, s.Name, conn)
	if s.HasCredentials() {
		if err := pingDatabase(ctx, db.Writer()); err != nil {
			r.log().Error("Failed to authenticate", "alias", alias, "database", s.Name, "error", err)
			return nil, authError(alias, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[alias] != gen || r.connections[alias] != conn {
		return nil, errStale
	}
	r.dbs[alias] = db
	return db, nil
}

// asConnectionError reports a caller giving up on a shared dial as a
// connect failure of alias.
func asConnectionError(alias string, err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	return connectError(alias, err)
}

// share runs fn once per key among concurrent callers. A caller whose ctx
// ends stops waiting; the shared call carries on for the others.
func (r *Registry) share(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	ch := r.group.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect closes the connection of alias and of every alias reading from
// it. Settings stay registered.
func (r *Registry) Disconnect(ctx context.Context, alias string) error {
	r.mu.Lock()
	var stale []*Connection
	r.invalidateLocked(alias, &stale)
	r.mu.Unlock()

	return disconnectContext(ctx, stale)
}

// DisconnectAll closes every cached connection.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.Lock()
	stale := slices.Collect(maps.Values(r.connections))
	clear(r.connections)
	clear(r.dbs)
	for alias := range r.settings {
		r.bumpLocked(alias)
	}
	r.mu.Unlock()

	return disconnectContext(ctx, stale)
}

// Reset forgets all settings and cached handles without closing anything.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.settings)
	clear(r.connections)
	clear(r.dbs)
	clear(r.gens)
}

func (r *Registry) bumpLocked(alias string) {
	r.seq++
	r.gens[alias] = r.seq
}

func (r *Registry) invalidateLocked(alias string, stale *[]*Connection) {
	r.bumpLocked(alias)
	delete(r.dbs, alias)
	conn, ok := r.connections[alias]
	if !ok {
		return
	}
	delete(r.connections, alias)
	*stale = append(*stale, conn)

	for other, c := range r.connections {
		for _, sec := range c.secondaries {
			if sec == conn {
				r.invalidateLocked(other, stale)
				break
			}
		}
	}
}

func disconnectAll(conns []*Connection) error {
	if len(conns) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return disconnectContext(ctx, conns)
}

func disconnectContext(ctx context.Context, conns []*Connection) error {
	var errs []error
	for _, conn := range conns {
		if err := conn.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", conn.alias, err))
		}
	}
	return errors.Join(errs...)
}
