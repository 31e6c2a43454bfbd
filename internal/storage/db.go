package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPath is the database file used when no location is configured.
const DefaultPath = "./expenses.db"

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultBusyTimeout     = 5 * time.Second
	defaultConnMaxLifetime = time.Hour
	defaultQueryTimeout    = 3 * time.Second
)

// Options configures how an Engine connects to its database.
type Options struct {
	Driver          string // one of Drivers(); defaults to DriverSQLite
	Path            string // file path for SQLite, connection URL for postgres
	MaxOpenConns    int
	MaxIdleConns    int
	BusyTimeout     time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration // per statement issued by a Session
	Registry        *Registry     // defaults to DefaultRegistry()
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverSQLite
	}
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdleConns
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = defaultBusyTimeout
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = defaultQueryTimeout
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	return o
}

// Engine owns the connection pool to one database. It is safe for concurrent
// use; units of work are handed out with Begin.
type Engine struct {
	conn         *sql.DB
	driver       driver
	registry     *Registry
	path         string
	queryTimeout time.Duration
}

// Open connects to the database described by opts and verifies the
// connection. The schema is not touched; call Materialize for that.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	drv, ok := lookupDriver(opts.Driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q (available: %s)", opts.Driver, strings.Join(Drivers(), ", "))
	}

	conn, err := sql.Open(drv.sqlName, drv.dsn(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if drv.dialect == SQLite && isMemoryPath(opts.Path) && !strings.Contains(opts.Path, "cache=shared") {
		// Every connection to :memory: is a separate database, so the pool
		// is pinned to one connection that never expires.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
		conn.SetMaxIdleConns(opts.MaxIdleConns)
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().
		Str("driver", opts.Driver).
		Str("dialect", drv.dialect.String()).
		Msg("Database connection established")

	return &Engine{
		conn:         conn,
		driver:       drv,
		registry:     opts.Registry,
		path:         opts.Path,
		queryTimeout: opts.QueryTimeout,
	}, nil
}

// NewDB opens a SQLite database at path with default options and
// materializes the default schema.
func NewDB(path string) (*Engine, error) {
	ctx := context.Background()
	e, err := Open(ctx, Options{Path: path})
	if err != nil {
		return nil, err
	}
	if err := e.Materialize(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// Materialize creates every registered table and index that does not exist
// yet. It runs in a single unit of work and is safe to call repeatedly.
func (e *Engine) Materialize(ctx context.Context) error {
	statements := e.registry.Statements(e.driver.dialect)
	err := e.WithSession(ctx, func(s *Session) error {
		for i, stmt := range statements {
			if _, err := s.exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d failed: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to materialize schema: %w", err)
	}
	log.Debug().Int("statements", len(statements)).Msg("Schema materialized")
	return nil
}

// Begin starts a unit of work. Nothing it writes is visible to other
// sessions until Commit; Close must be called on every exit path.
func (e *Engine) Begin(ctx context.Context) (*Session, error) {
	tx, err := e.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}
	s := newSession(tx, e.driver, e.queryTimeout)
	log.Trace().Str("session", s.id).Msg("Session started")
	return s, nil
}

// WithSession runs fn in a unit of work, committing when fn returns nil and
// rolling back when it returns an error or panics.
func (e *Engine) WithSession(ctx context.Context, fn func(*Session) error) error {
	s, err := e.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}
	return s.Commit()
}

// Ping verifies the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.conn.PingContext(ctx)
}

// Dialect returns the SQL dialect of the connected database.
func (e *Engine) Dialect() Dialect {
	return e.driver.dialect
}

// Registry returns the tables this engine materializes.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Path returns the configured database location.
func (e *Engine) Path() string {
	return e.path
}

// Close closes the connection pool.
func (e *Engine) Close() error {
	return e.conn.Close()
}
