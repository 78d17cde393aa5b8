package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// CreateSessionDBFixture creates a session database with two sessions and
// a handful of messages, returning the database path.
func CreateSessionDBFixture(t *testing.T, dir string) string {
	t.Helper()
	dbPath := filepath.Join(dir, "sessions.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		PRIMARY KEY (session_id, position)
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	now := time.Now().Unix()
	sessions := []struct {
		id, title      string
		created, updated int64
	}{
		{"fixture-1", "Trip Planning", now - 3600, now - 100},
		{"fixture-2", "New Chat", now - 7200, now - 7200},
	}
	for _, s := range sessions {
		if _, err := db.Exec(
			"INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
			s.id, s.title, s.created, s.updated,
		); err != nil {
			t.Fatalf("Failed to insert session fixture: %v", err)
		}
	}

	messages := []struct {
		sessionID     string
		position      int
		role, content string
	}{
		{"fixture-1", 0, "user", "Help me plan a trip to Kyoto"},
		{"fixture-1", 1, "assistant", "Sure! When are you traveling?"},
	}
	for _, m := range messages {
		if _, err := db.Exec(
			"INSERT INTO messages (session_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?)",
			m.sessionID, m.position, m.role, m.content, now,
		); err != nil {
			t.Fatalf("Failed to insert message fixture: %v", err)
		}
	}

	return dbPath
}
