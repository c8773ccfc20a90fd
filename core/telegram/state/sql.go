package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/intakebot/core/logger"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS conversation_sessions (
	chat_id    INTEGER PRIMARY KEY,
	state      TEXT NOT NULL,
	history    TEXT NOT NULL DEFAULT '[]',
	data       TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const (
	selectSessionSQL = `SELECT state, history, data FROM conversation_sessions WHERE chat_id = ?`
	upsertSessionSQL = `INSERT INTO conversation_sessions (chat_id, state, history, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (chat_id) DO UPDATE SET
	state = excluded.state,
	history = excluded.history,
	data = excluded.data,
	updated_at = excluded.updated_at`
	deleteSessionSQL = `DELETE FROM conversation_sessions WHERE chat_id = ?`
)

// SQLStore keeps sessions in the conversation_sessions table. Postgres
// serializes updates per chat with a transaction-scoped advisory lock; SQLite
// runs on a single connection, so transactions never interleave.
type SQLStore struct {
	db        *sqlx.DB
	driver    string
	lockQuery string
}

type sessionRow struct {
	State   string `db:"state"`
	History string `db:"history"`
	Data    string `db:"data"`
}

// NewPostgresStore wraps a migrated Postgres connection.
func NewPostgresStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:        db,
		driver:    "postgres",
		lockQuery: `SELECT pg_advisory_xact_lock($1)`,
	}
}

// NewSQLiteStore wraps a SQLite connection and creates the table if needed.
func NewSQLiteStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("state: sqlite schema: %w", err)
	}
	return &SQLStore{db: db, driver: "sqlite"}, nil
}

// Get returns the stored session or an idle one.
func (s *SQLStore) Get(ctx context.Context, chatID int64) (Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectSessionSQL), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return Idle(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("state: load session: %w", err)
	}
	return row.decode()
}

// Update runs fn inside a transaction and writes the result back.
func (s *SQLStore) Update(ctx context.Context, chatID int64, fn func(*Session) error) (err error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.lockQuery != "" {
		if _, err = tx.ExecContext(ctx, s.lockQuery, chatID); err != nil {
			return fmt.Errorf("state: lock session: %w", err)
		}
	}

	sess := Idle()
	var row sessionRow
	switch qerr := tx.GetContext(ctx, &row, tx.Rebind(selectSessionSQL), chatID); {
	case errors.Is(qerr, sql.ErrNoRows):
	case qerr != nil:
		err = fmt.Errorf("state: load session: %w", qerr)
		return err
	default:
		if sess, err = row.decode(); err != nil {
			return err
		}
	}

	if ferr := fn(&sess); ferr != nil {
		if errors.Is(ferr, ErrUnchanged) {
			err = tx.Rollback()
			return err
		}
		err = ferr
		return err
	}

	if sess.Empty() {
		_, err = tx.ExecContext(ctx, tx.Rebind(deleteSessionSQL), chatID)
	} else {
		var enc sessionRow
		if enc, err = encodeRow(sess); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(upsertSessionSQL),
			chatID, enc.State, enc.History, enc.Data, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("state: save session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}

	logger.Store.Debug("session saved",
		slog.String("event", "store.update"),
		slog.String("driver", s.driver),
		slog.Int64("chat_id", chatID),
		slog.String("step", string(sess.State)),
		slog.Int("history_len", len(sess.History)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Clear deletes the session row.
func (s *SQLStore) Clear(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(deleteSessionSQL), chatID); err != nil {
		return fmt.Errorf("state: clear session: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (r sessionRow) decode() (Session, error) {
	sess := Session{State: State(r.State)}
	if sess.State == "" {
		sess.State = StateIdle
	}
	if r.History != "" && r.History != "[]" {
		if err := json.Unmarshal([]byte(r.History), &sess.History); err != nil {
			return Session{}, fmt.Errorf("state: decode history: %w", err)
		}
	}
	if r.Data != "" {
		sess.Data = json.RawMessage(r.Data)
	}
	return sess, nil
}

func encodeRow(sess Session) (sessionRow, error) {
	history := []State{}
	if len(sess.History) > 0 {
		history = sess.History
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return sessionRow{}, fmt.Errorf("state: encode history: %w", err)
	}
	return sessionRow{State: string(sess.State), History: string(raw), Data: string(sess.Data)}, nil
}
