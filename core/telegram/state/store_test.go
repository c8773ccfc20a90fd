package state

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/m3rciful/intakebot/core/database"
)

func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	const chat int64 = 42

	sess, err := store.Get(ctx, chat)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if sess.Active() || sess.State != StateIdle {
		t.Fatalf("expected idle session, got %+v", sess)
	}

	err = store.Update(ctx, chat, func(s *Session) error {
		s.History = append(s.History, s.State)
		s.State = "flow.first"
		s.Data = json.RawMessage(`{"k":"v"}`)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	sess, err = store.Get(ctx, chat)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != "flow.first" || len(sess.History) != 1 || string(sess.Data) != `{"k":"v"}` {
		t.Fatalf("unexpected session %+v", sess)
	}

	boom := errors.New("boom")
	err = store.Update(ctx, chat, func(s *Session) error {
		s.State = "flow.second"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if sess, _ = store.Get(ctx, chat); sess.State != "flow.first" {
		t.Fatalf("failed update leaked state %q", sess.State)
	}

	err = store.Update(ctx, chat, func(s *Session) error {
		s.State = "flow.ignored"
		return ErrUnchanged
	})
	if err != nil {
		t.Fatalf("unchanged update: %v", err)
	}
	if sess, _ = store.Get(ctx, chat); sess.State != "flow.first" {
		t.Fatalf("unchanged update wrote state %q", sess.State)
	}

	if err := store.Clear(ctx, chat); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx, chat); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if sess, _ = store.Get(ctx, chat); sess.Active() {
		t.Fatalf("expected idle after clear, got %+v", sess)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreDropsEmptySessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Update(ctx, 1, func(s *Session) error {
		s.State = "x"
		return nil
	})
	_ = store.Update(ctx, 1, func(s *Session) error {
		*s = Idle()
		return nil
	})
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d sessions", store.Len())
	}
}

func TestMemoryStoreSerializesUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, 7, func(s *Session) error {
				s.State = "counting"
				s.History = append(s.History, "tick")
				return nil
			})
		}()
	}
	wg.Wait()

	sess, _ := store.Get(ctx, 7)
	if len(sess.History) != workers {
		t.Fatalf("lost updates: history_len=%d want %d", len(sess.History), workers)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Update(ctx, 1, func(s *Session) error {
		s.State = "a"
		s.History = []State{StateIdle}
		return nil
	})
	sess, _ := store.Get(ctx, 1)
	sess.History[0] = "mutated"
	again, _ := store.Get(ctx, 1)
	if again.History[0] != StateIdle {
		t.Fatalf("stored history aliased by caller")
	}
}

func TestSQLiteStoreContract(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	storeContract(t, store)
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Driver: " SQLite "}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Driver != DriverSQLite || cfg.SQLitePath == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	cfg = Config{}
	if err := cfg.Normalize(); err != nil || cfg.Driver != DriverMemory {
		t.Fatalf("expected memory default, got %+v err=%v", cfg, err)
	}

	cfg = Config{Driver: "mongo"}
	if err := cfg.Normalize(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
