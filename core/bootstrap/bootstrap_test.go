package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/intakebot/core/config"
	coredatabase "github.com/m3rciful/intakebot/core/database"
	"github.com/m3rciful/intakebot/core/telegram/state"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunMemory(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()
	if _, ok := res.Store.(*state.MemoryStore); !ok {
		t.Fatalf("store = %T, want *state.MemoryStore", res.Store)
	}
	if res.DB != nil {
		t.Fatal("memory driver should not open a database")
	}
}

func TestRunSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Storage:    state.Config{Driver: "SQLite", SQLitePath: path},
		LoggerInit: noLogger,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()
	if _, ok := res.Store.(*state.SQLStore); !ok {
		t.Fatalf("store = %T, want *state.SQLStore", res.Store)
	}

	ctx := context.Background()
	err = res.Store.Update(ctx, 7, func(s *state.Session) error {
		s.State = "building.details"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	sess, err := res.Store.Get(ctx, 7)
	if err != nil || sess.State != "building.details" {
		t.Fatalf("Get = %+v, %v", sess, err)
	}
}

func TestRunPostgresMigrationFailure(t *testing.T) {
	migErr := errors.New("no server")
	connected := false
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Storage:    state.Config{Driver: state.DriverPostgres},
		LoggerInit: noLogger,
		Migrate: func(context.Context, coredatabase.Config) error {
			return migErr
		},
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	if !errors.Is(err, migErr) {
		t.Fatalf("err = %v, want wrapped migration error", err)
	}
	if connected {
		t.Fatal("connect must not run after failed migrations")
	}
}

func TestRunRedisOpenFailure(t *testing.T) {
	openErr := errors.New("refused")
	var got state.RedisConfig
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Storage:    state.Config{Driver: state.DriverRedis},
		LoggerInit: noLogger,
		OpenRedis: func(cfg state.RedisConfig) (*redis.Client, error) {
			got = cfg
			return nil, openErr
		},
	})
	if !errors.Is(err, openErr) {
		t.Fatalf("err = %v, want wrapped open error", err)
	}
	if got.Addr != "localhost:6379" {
		t.Fatalf("addr = %q, want default", got.Addr)
	}
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Storage:    state.Config{Driver: "etcd"},
		LoggerInit: noLogger,
	})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRunLoggerFailure(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("bad output") },
	})
	if err == nil {
		t.Fatal("expected logger init error")
	}
}
