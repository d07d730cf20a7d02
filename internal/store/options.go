package store

import (
	"fmt"
	"log/slog"
	"strings"
)

// Opts holds configuration for store backends.
type Opts struct {
	DSN    string
	Driver string // "postgres" or "sqlite3"
}

// Option configures a store backend.
type Option func(*Opts)

// WithPostgresDSN selects the PostgreSQL backend.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "postgres"
	}
}

// WithSQLiteDSN selects the SQLite backend; dsn is a file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "sqlite3"
	}
}

// WithDSN picks the backend from the shape of dsn.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = DetectDSNType(dsn)
	}
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or keyword DSNs and
// "sqlite3" for anything else.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") ||
		(strings.Contains(d, "host=") && strings.Contains(d, "dbname=")) {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend selected by opts, or an InMemoryStore when no DSN
// was given.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Warn("store.New: no DSN configured, using in-memory store (data is lost on restart)")
		return NewInMemoryStore(), nil
	case cfg.Driver == "postgres":
		return NewPostgresStore(opts...)
	case cfg.Driver == "sqlite3":
		return NewSQLiteStore(opts...)
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}
