// Package eventlog persists connection and combat events to SQLite. Writes
// are batched on a background goroutine so the game loop never waits on
// disk.
package eventlog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database at path. ":memory:" gives
// a private in-memory database.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection: an in-memory database exists per connection, and a
	// single writer avoids SQLITE_BUSY on file databases
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		tick INTEGER NOT NULL DEFAULT 0,
		player INTEGER NOT NULL DEFAULT -1,
		other INTEGER NOT NULL DEFAULT -1,
		conn_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// EventCounts returns the number of stored events of each kind
func (db *DB) EventCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		result[kind] = count
	}
	return result, rows.Err()
}

// KillCount is one row of the kill leaderboard
type KillCount struct {
	Player int64 `json:"player"`
	Kills  int   `json:"kills"`
}

// KillLeaders returns the players with the most kills, best first. Ties
// go to the lower player slot.
func (db *DB) KillLeaders(limit int) ([]KillCount, error) {
	rows, err := db.conn.Query(`
		SELECT other, COUNT(*) AS cnt FROM events
		WHERE kind = ? AND other >= 0
		GROUP BY other ORDER BY cnt DESC, other ASC LIMIT ?
	`, KindKill, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []KillCount
	for rows.Next() {
		var kc KillCount
		if err := rows.Scan(&kc.Player, &kc.Kills); err != nil {
			return nil, err
		}
		result = append(result, kc)
	}
	return result, rows.Err()
}
