package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcdev12/werewolf/go/internal/sqlutil"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

// Keys under which the session identifiers are stored.
const (
	KeyGameID     = "gameId"
	KeyPlayerID   = "playerId"
	KeyPlayerName = "playerName"
)

// ErrNoSession is returned when no game id has been stored.
var ErrNoSession = errors.New("no game found")

// Session is the locally remembered identity for one game.
type Session struct {
	GameID     string
	PlayerID   string
	PlayerName string
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store keeps the session in a local SQLite key/value table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. Use ":memory:" for a
// throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}

	log.Debug().Str("path", path).Msg("session store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored session, or ErrNoSession when no game id is set.
func (s *Store) Load(ctx context.Context) (Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session`)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	var sess Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Session{}, fmt.Errorf("failed to scan session row: %w", err)
		}
		switch key {
		case KeyGameID:
			sess.GameID = value
		case KeyPlayerID:
			sess.PlayerID = value
		case KeyPlayerName:
			sess.PlayerName = value
		}
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.GameID == "" {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save replaces the stored session. Empty fields are removed.
func (s *Store) Save(ctx context.Context, sess Session) error {
	values := map[string]string{
		KeyGameID:     sess.GameID,
		KeyPlayerID:   sess.PlayerID,
		KeyPlayerName: sess.PlayerName,
	}

	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		for key, value := range values {
			if value == "" {
				if _, err := tx.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key); err != nil {
					return err
				}
				continue
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO session (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				key, value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().Str("game_id", sess.GameID).Str("player_id", sess.PlayerID).Msg("session saved")
	return nil
}

// Clear forgets the session ("return home").
func (s *Store) Clear(ctx context.Context) error {
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM session`)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
