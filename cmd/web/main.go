package main

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/myrjola/saferroad/internal/envstruct"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/game"
	"github.com/myrjola/saferroad/internal/logging"
	"github.com/myrjola/saferroad/internal/metrics"
	"github.com/myrjola/saferroad/internal/models"
	"github.com/myrjola/saferroad/internal/pprofserver"
	"github.com/myrjola/saferroad/internal/sqlite"
)

type application struct {
	logger         *slog.Logger
	engine         *game.Engine
	sessionManager *scs.SessionManager
	metrics        *metrics.Manager
	htmx           *htmx.HTMX
	templates      templateCache
	secureCookies  bool
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SAFERROAD_ADDR" envDefault:"localhost:4000"`
	// DatasetPath points to the CSV file of road records with predicted accident risks.
	DatasetPath string `env:"SAFERROAD_DATASET_PATH" envDefault:"./accident_risk_predictions.csv"`
	// SqliteURL selects the session database. Only ":memory:" is supported.
	SqliteURL       string        `env:"SAFERROAD_SQLITE_URL" envDefault:":memory:"`
	SessionLifetime time.Duration `env:"SAFERROAD_SESSION_LIFETIME" envDefault:"12h"`
	// SecureCookies should only be disabled when serving plain HTTP outside localhost.
	SecureCookies bool `env:"SAFERROAD_SECURE_COOKIES" envDefault:"true"`
	// PprofPort enables the pprof server on the loopback interface when set.
	PprofPort string `env:"SAFERROAD_PPROF_PORT" envDefault:""`
}

func init() {
	gob.Register(models.GameState{})
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PprofPort != "" {
		pprofserver.Launch(ctx, cfg.PprofPort, logger)
	}

	var table *dataset.Table
	if table, err = dataset.Load(cfg.DatasetPath); err != nil {
		return errors.Wrap(err, "load dataset", slog.String("path", cfg.DatasetPath))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "loaded dataset",
		slog.String("path", cfg.DatasetPath), slog.Int("records", table.Len()))

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open session database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close session database", errors.SlogError(closeErr))
		}
	}()

	store := sqlite3store.NewWithCleanupInterval(db.DB.DB, 24*time.Hour) //nolint:mnd // daily
	defer store.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = cfg.SecureCookies
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	var templates templateCache
	if templates, err = newTemplateCache(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	gameMetrics := metrics.NewManager()
	gameMetrics.DatasetLoaded(table.Len())

	app := application{
		logger:         logger,
		engine:         game.NewEngine(table),
		sessionManager: sessionManager,
		metrics:        gameMetrics,
		htmx:           htmx.New(),
		templates:      templates,
		secureCookies:  cfg.SecureCookies,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}

	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil {
		logger.LogAttrs(ctx, slog.LevelDebug, "no .env file loaded", slog.Any("error", err))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
