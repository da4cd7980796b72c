package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/random"
)

//go:embed schema.sql
var schemaDefinition string

// ErrUnsupportedURL is returned for any database URL other than ":memory:". Sessions are never written to disk.
var ErrUnsupportedURL = errors.NewSentinel("only in-memory databases are supported")

// Database holds the session storage of the web server.
type Database struct {
	DB     *sqlx.DB
	logger *slog.Logger
}

// dataSourceName builds the DSN for url, which has to be ":memory:".
//
// Every in-memory database gets a random name and shared cache so that all connections in the pool see the same
// data while parallel tests stay isolated. See https://www.sqlite.org/inmemorydb.html.
func dataSourceName(url string) (string, error) {
	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	options := []string{
		"_txlock=immediate",
		// Avoids SQLITE_BUSY errors when database is under load.
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
		"_temp_store=memory",
	}
	if url != ":memory:" {
		return "", errors.Wrap(ErrUnsupportedURL, "data source name", slog.String("url", url))
	}
	var (
		name         string
		err          error
		dbNameLength uint = 20
	)
	if name, err = random.Letters(dbNameLength); err != nil {
		return "", errors.Wrap(err, "generate random ID")
	}
	options = append(options, "mode=memory", "cache=shared")
	return fmt.Sprintf("file:%s?%s", name, strings.Join(options, "&")), nil
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	dsn, err := dataSourceName(url)
	if err != nil {
		return nil, errors.Wrap(err, "data source name")
	}

	var db *sqlx.DB
	if db, err = sqlx.Open("sqlite3", dsn); err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// SQLite allows a single writer. Keeping one connection also keeps a shared in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return &Database{DB: db, logger: logger}, nil
}

// NewDatabase connects to the database at url and synchronises the schema.
//
// The optimizer runs in the background until ctx is done.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect", slog.String("url", url))
	}

	if err = db.setup(ctx, schemaDefinition); err != nil {
		return nil, err
	}

	go db.startOptimizer(ctx, time.Hour)

	return db, nil
}

// setup synchronises the schema. The connection pool is closed when that fails.
func (db *Database) setup(ctx context.Context, schema string) error {
	if err := db.migrate(ctx, schema); err != nil {
		err = errors.Wrap(err, "synchronise schema")
		if closeErr := db.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}
	return nil
}

// Close closes the connection pool.
func (db *Database) Close() error {
	if err := db.DB.Close(); err != nil {
		return errors.Wrap(err, "close database")
	}
	return nil
}
