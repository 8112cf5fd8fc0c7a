// Package persistence provides SQLite-based game state storage for running the engine outside the game server.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"steppal/steppal"
)

var (
	_ steppal.GameStateStore = &SQLiteStore{}
	_ steppal.UserLister     = &SQLiteStore{}
)

// SQLiteStore keeps one JSON document per user with an integer version for optimistic writes.
type SQLiteStore struct {
	conn *sqlx.DB
}

type gameStateRow struct {
	UserID    string `db:"user_id"`
	StateJSON string `db:"state_json"`
	Version   int64  `db:"version"`
	UpdatedAt int64  `db:"updated_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the CLI and the scheduler.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS game_states (
		user_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, logger runtime.Logger, userID string) (*steppal.GameState, error) {
	var row gameStateRow
	err := s.conn.GetContext(ctx, &row, `SELECT user_id, state_json, version, updated_at FROM game_states WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, steppal.ErrGameStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game state %s: %w", userID, err)
	}

	var state steppal.GameState
	if err := json.Unmarshal([]byte(row.StateJSON), &state); err != nil {
		return nil, fmt.Errorf("decode game state %s: %w", userID, err)
	}
	state.Version = strconv.FormatInt(row.Version, 10)
	return &state, nil
}

func (s *SQLiteStore) Save(ctx context.Context, logger runtime.Logger, userID string, state *steppal.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode game state %s: %w", userID, err)
	}
	now := time.Now().Unix()

	var (
		result  sql.Result
		version int64 = 1
	)
	if state.Version == "" {
		result, err = s.conn.ExecContext(ctx, `INSERT INTO game_states (user_id, state_json, version, updated_at)
			VALUES (?, ?, ?, ?) ON CONFLICT(user_id) DO NOTHING`, userID, string(data), version, now)
	} else {
		current, perr := strconv.ParseInt(state.Version, 10, 64)
		if perr != nil {
			return fmt.Errorf("game state %s: invalid version %q: %w", userID, state.Version, steppal.ErrVersionConflict)
		}
		version = current + 1
		result, err = s.conn.ExecContext(ctx, `UPDATE game_states SET state_json = ?, version = ?, updated_at = ?
			WHERE user_id = ? AND version = ?`, string(data), version, now, userID, current)
	}
	if err != nil {
		return fmt.Errorf("save game state %s: %w", userID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save game state %s: %w", userID, err)
	}
	if n == 0 {
		logger.Warn("Rejected stale write of game state for user %s at version %q", userID, state.Version)
		return steppal.ErrVersionConflict
	}
	state.Version = strconv.FormatInt(version, 10)
	return nil
}

// ListUserIDs pages through users in id order. The cursor is the last user id of the previous page.
func (s *SQLiteStore) ListUserIDs(ctx context.Context, logger runtime.Logger, cursor string, limit int) ([]string, string, error) {
	if limit <= 0 {
		limit = 100
	}
	var userIDs []string
	if err := s.conn.SelectContext(ctx, &userIDs, `SELECT user_id FROM game_states WHERE user_id > ? ORDER BY user_id LIMIT ?`, cursor, limit); err != nil {
		return nil, "", fmt.Errorf("list game states: %w", err)
	}
	next := ""
	if len(userIDs) == limit {
		next = userIDs[len(userIDs)-1]
	}
	return userIDs, next, nil
}
