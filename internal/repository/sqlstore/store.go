// Package sqlstore implements the repository interfaces on top of sqlx.
//
// Two drivers are supported:
//   - "sqlite" (modernc.org/sqlite, pure Go, the default). A file path or
//     ":memory:" for tests.
//   - "pgx" (github.com/jackc/pgx/v5/stdlib) for Postgres.
//
// All SQL is written with ? placeholders and passed through Rebind, which
// turns them into $1, $2... for Postgres. Schema changes are goose
// migrations embedded per dialect.
package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/sakif/gameratings/internal/dbx"
	"github.com/sakif/gameratings/internal/repository"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// Options configures Open.
type Options struct {
	Driver       string // DriverSQLite or DriverPostgres
	DSN          string
	MaxOpenConns int // 0 keeps the driver default; forced to 1 for in-memory SQLite
	Logger       *slog.Logger
}

// Store is the sqlx-backed repository.Store.
//
// A Store returned by Open owns the pool (db != nil). The Store handed to a
// WithinTx callback is bound to the transaction and has db == nil.
type Store struct {
	db     *sqlx.DB
	q      dbx.DBTX
	logger *slog.Logger
}

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// Open connects, applies per-driver settings and runs pending migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dsn := opts.DSN
	var migrationsDir, dialect string
	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		if isMemoryDSN(dsn) {
			// Every new connection to :memory: is a brand-new empty database.
			opts.MaxOpenConns = 1
		}
		dsn = sqliteDSN(dsn)
		migrationsDir, dialect = "migrations/sqlite", "sqlite3"
	case DriverPostgres:
		migrationsDir, dialect = "migrations/postgres", "postgres"
	default:
		return nil, fmt.Errorf("sqlstore: unknown driver %q", opts.Driver)
	}

	db, err := sqlx.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	// Ping so a bad path or DSN fails here instead of on the first request.
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	if err := migrate(ctx, db, migrationsDir, dialect, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("driver", opts.Driver))
	return &Store{db: db, q: db, logger: logger}, nil
}

// isMemoryDSN reports whether dsn names a private in-memory SQLite database.
func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// sqliteDSN appends the connection pragmas. modernc applies _pragma
// parameters to every connection it opens, unlike a one-off PRAGMA exec
// which only reaches whichever pooled connection ran it.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if !isMemoryDSN(dsn) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func migrate(ctx context.Context, db *sqlx.DB, dir, dialect string, logger *slog.Logger) error {
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(sub)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, ".")
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	// goose only calls Fatalf from its CLI paths; never exit the server here.
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

// Close closes the connection pool. It is a no-op on a transaction-bound Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("sqlstore: ping on transaction-bound store")
	}
	return s.db.PingContext(ctx)
}

// WithinTx runs fn inside a transaction. A nested call joins the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.db == nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &Store{q: tx, logger: s.logger})
	})
}

func (s *Store) Users() repository.UserRepository { return &userRepo{q: s.q} }
func (s *Store) UserData() repository.UserDataRepository { return &userDataRepo{q: s.q} }
func (s *Store) Games() repository.GameRepository { return &gameRepo{q: s.q} }
func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepo{q: s.q} }
