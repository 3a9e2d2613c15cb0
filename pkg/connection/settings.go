package connection

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"time"
)

const (
	// DefaultAlias is the alias used when no alias is given.
	DefaultAlias = "default"

	DefaultHost           = "localhost"
	DefaultPort           = 27017
	DefaultConnectTimeout = 10 * time.Second
)

// Settings describes one registered connection.
type Settings struct {
	// Name is the database selected for this alias.
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// URI is an optional mongodb:// connection string. When set it supplies
	// the hosts and driver options, and Host/Port are ignored.
	URI string `yaml:"uri"`

	// Secondary marks the alias as usable as a read secondary of another alias.
	Secondary bool `yaml:"secondary"`

	// Secondaries lists aliases whose connections serve reads for this alias.
	// Each must be registered with Secondary set.
	Secondaries []string `yaml:"secondaries"`

	// PoolSize caps the driver connection pool. Zero keeps the driver default.
	PoolSize uint64 `yaml:"pool_size"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

var (
	ErrNameRequired       = errors.New("database name is required")
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrIncompleteAuth     = errors.New("username and password must be set together")
	ErrSelfSecondary      = errors.New("alias cannot list itself as a secondary")
	ErrDuplicateSecondary = errors.New("secondary listed more than once")
)

// ApplyDefaults fills zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.ConnectTimeout == 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
}

// Validate checks the settings registered under alias.
func (s Settings) Validate(alias string) error {
	if s.Name == "" {
		return fmt.Errorf("connection %q: %w", alias, ErrNameRequired)
	}
	if s.URI == "" && (s.Port < 1 || s.Port > 65535) {
		return fmt.Errorf("connection %q: %w", alias, ErrInvalidPort)
	}
	if (s.Username == "") != (s.Password == "") {
		return fmt.Errorf("connection %q: %w", alias, ErrIncompleteAuth)
	}
	for i, sec := range s.Secondaries {
		if sec == alias {
			return fmt.Errorf("connection %q: %w", alias, ErrSelfSecondary)
		}
		if slices.Contains(s.Secondaries[i+1:], sec) {
			return fmt.Errorf("connection %q: %w: %s", alias, ErrDuplicateSecondary, sec)
		}
	}
	return nil
}

// Address returns host:port for the settings.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// HasCredentials reports whether the database handle must authenticate.
func (s Settings) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}

func (s Settings) clone() Settings {
	s.Secondaries = slices.Clone(s.Secondaries)
	return s
}

func (s Settings) equal(o Settings) bool {
	return s.Name == o.Name &&
		s.Host == o.Host &&
		s.Port == o.Port &&
		s.URI == o.URI &&
		s.Secondary == o.Secondary &&
		slices.Equal(s.Secondaries, o.Secondaries) &&
		s.PoolSize == o.PoolSize &&
		s.Username == o.Username &&
		s.Password == o.Password &&
		s.ConnectTimeout == o.ConnectTimeout
}

// Option customises Settings passed to RegisterConnection.
type Option func(*Settings)

func WithHost(host string) Option {
	return func(s *Settings) { s.Host = host }
}

func WithPort(port int) Option {
	return func(s *Settings) { s.Port = port }
}

// WithURI sets a full connection string.
func WithURI(uri string) Option {
	return func(s *Settings) { s.URI = uri }
}

// WithSecondary marks the alias as a read secondary.
func WithSecondary() Option {
	return func(s *Settings) { s.Secondary = true }
}

// WithSecondaries sets the aliases that serve reads for this connection.
func WithSecondaries(aliases ...string) Option {
	return func(s *Settings) { s.Secondaries = append([]string(nil), aliases...) }
}

func WithPoolSize(size uint64) Option {
	return func(s *Settings) { s.PoolSize = size }
}

// WithCredentials makes the database handle authenticate as username.
func WithCredentials(username, password string) Option {
	return func(s *Settings) {
		s.Username = username
		s.Password = password
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(s *Settings) { s.ConnectTimeout = d }
}

// NewSettings builds settings for database name with opts applied on top of
// the defaults.
func NewSettings(name string, opts ...Option) Settings {
	s := Settings{Name: name}
	for _, opt := range opts {
		opt(&s)
	}
	s.ApplyDefaults()
	return s
}
