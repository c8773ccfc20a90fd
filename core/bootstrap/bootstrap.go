package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/intakebot/core/config"
	coredatabase "github.com/m3rciful/intakebot/core/database"
	"github.com/m3rciful/intakebot/core/logger"
	"github.com/m3rciful/intakebot/core/telegram/state"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Storage  state.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	OpenSQLite func(path string) (*sqlx.DB, error)
	OpenRedis  func(state.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store state.Store
	// DB is set for SQL-backed stores.
	DB *sqlx.DB
}

// Close releases the session store and its connection.
func (r *Result) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// Run initializes the logger and opens the session store selected by
// Storage.Driver, applying migrations for Postgres.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	storage := opts.Storage
	if err := storage.Normalize(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	start := time.Now()
	res, err := openStore(ctx, opts, storage)
	if err != nil {
		return nil, err
	}
	logger.Store.Info("store ready",
		slog.String("event", "store.open"),
		slog.String("driver", storage.Driver),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return res, nil
}

func openStore(ctx context.Context, opts Options, storage state.Config) (*Result, error) {
	switch storage.Driver {
	case state.DriverMemory:
		return &Result{Store: state.NewMemoryStore()}, nil

	case state.DriverPostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, opts.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		db, err := connect(opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		return &Result{Store: state.NewPostgresStore(db), DB: db}, nil

	case state.DriverSQLite:
		open := opts.OpenSQLite
		if open == nil {
			open = coredatabase.OpenSQLite
		}
		db, err := open(storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sqlite open failed: %w", err)
		}
		store, err := state.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: sqlite schema failed: %w", err)
		}
		return &Result{Store: store, DB: db}, nil

	case state.DriverRedis:
		open := opts.OpenRedis
		if open == nil {
			open = OpenRedis
		}
		client, err := open(storage.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis init failed: %w", err)
		}
		return &Result{Store: state.NewRedisStore(client, storage.SessionTTL)}, nil
	}
	return nil, fmt.Errorf("bootstrap: unknown storage driver %q", storage.Driver)
}

// OpenRedis connects to Redis and verifies the server answers PING.
func OpenRedis(cfg state.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Store.Error("redis ping failed",
			slog.String("event", "redis.connect"),
			slog.String("addr", cfg.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Store.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
	)
	return client, nil
}
