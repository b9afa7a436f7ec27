// Package library tracks which apps have been unlocked on this machine,
// backed by a small SQLite database in the config directory.
package library

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Game is one installed entry in the local library.
type Game struct {
	AppID       string
	Name        string
	DepotCount  int
	InstalledAt time.Time
}

// Store persists the library. All access goes through a single *sql.DB
// guarded by a RWMutex, matching how the driver expects serialized writes.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	mu  sync.RWMutex
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	app_id       TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	depot_count  INTEGER NOT NULL DEFAULT 0,
	installed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_installed_at ON games(installed_at);
`

// Open opens (creating if needed) the library database at dbPath.
func Open(dbPath string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Warn("failed to set pragma", zap.String("pragma", p), zap.Error(err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing library schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Upsert records an install, replacing any previous entry for the app.
func (s *Store) Upsert(game Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if game.InstalledAt.IsZero() {
		game.InstalledAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO games (app_id, name, depot_count, installed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			name = excluded.name,
			depot_count = excluded.depot_count,
			installed_at = excluded.installed_at
	`, game.AppID, game.Name, game.DepotCount, game.InstalledAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("upserting game: %w", err)
	}
	return nil
}

// Get returns the entry for appID, or nil when it is not in the library.
func (s *Store) Get(appID string) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var g Game
	var ts int64
	err := s.db.QueryRow(
		"SELECT app_id, name, depot_count, installed_at FROM games WHERE app_id = ?",
		appID,
	).Scan(&g.AppID, &g.Name, &g.DepotCount, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}
	g.InstalledAt = time.UnixMicro(ts).UTC()
	return &g, nil
}

// List returns all entries, most recently installed first.
func (s *Store) List() ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT app_id, name, depot_count, installed_at FROM games ORDER BY installed_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var games []Game
	for rows.Next() {
		var g Game
		var ts int64
		if err := rows.Scan(&g.AppID, &g.Name, &g.DepotCount, &ts); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		g.InstalledAt = time.UnixMicro(ts).UTC()
		games = append(games, g)
	}
	return games, rows.Err()
}

// Delete removes the entry for appID. Missing entries are not an error.
func (s *Store) Delete(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM games WHERE app_id = ?", appID); err != nil {
		return fmt.Errorf("deleting game: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
