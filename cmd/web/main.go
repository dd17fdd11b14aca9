package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/myrjola/pelocoach/internal/chat"
	"github.com/myrjola/pelocoach/internal/envstruct"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/flightrecorder"
	"github.com/myrjola/pelocoach/internal/logging"
	"github.com/myrjola/pelocoach/internal/platform"
	"github.com/myrjola/pelocoach/internal/prefs"
	"github.com/myrjola/pelocoach/internal/sqlite"
	"github.com/myrjola/pelocoach/internal/trainer"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	templateFS     fs.FS
	platformClient *platform.Client
	prefsService   *prefs.Service
	chatService    *chat.Service
	trainerService *trainer.Service
	flightRecorder *flightrecorder.Service
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"PELOCOACH_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"PELOCOACH_SQLITE_URL" envDefault:"./pelocoach.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"PELOCOACH_TEMPLATE_PATH" envDefault:""`
	// PlatformAPIURL is the base URL of the fitness platform's REST API.
	PlatformAPIURL string `env:"PELOCOACH_PLATFORM_API_URL" envDefault:"https://api.onepeloton.com"`
	// PlatformGraphQLURL is the fitness platform's GraphQL endpoint used for stack mutations.
	PlatformGraphQLURL string `env:"PELOCOACH_PLATFORM_GRAPHQL_URL" envDefault:"https://gql-graphql-gateway.prod.k8s.onepeloton.com/graphql"` //nolint:lll
	// OpenAIAPIKey authenticates recommendation and chat requests to OpenAI.
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	// TracesDirectory is the optional directory for runtime traces captured on request timeouts.
	TracesDirectory string `env:"PELOCOACH_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager := initializeSessionManager(db)

	platformClient := platform.New(cfg.PlatformAPIURL, cfg.PlatformGraphQLURL, logger)
	prefsService := prefs.NewService(db, logger)
	chatService := chat.NewService(db, logger)
	trainerService := trainer.NewService(cfg.OpenAIAPIKey, platformClient, prefsService, chatService, logger)

	var flightRecorder *flightrecorder.Service
	if cfg.TracesDirectory != "" {
		if flightRecorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			MinAge:          0,
			MaxBytes:        0,
			TracesDirectory: cfg.TracesDirectory,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = flightRecorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer flightRecorder.Stop(ctx)
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		templateFS:     os.DirFS(htmlTemplatePath),
		platformClient: platformClient,
		prefsService:   prefsService,
		chatService:    chatService,
		trainerService: trainerService,
		flightRecorder: flightRecorder,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                               //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// Local development reads secrets from an optional .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelWarn, "load .env", slog.Any("error", err))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
