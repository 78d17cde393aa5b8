package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session ID does not exist
var ErrSessionNotFound = errors.New("session not found")

// SessionDB persists sessions and their messages in a SQLite database
type SessionDB struct {
	db *sql.DB
}

const sessionSchema = `
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

// OpenSessionDB opens (creating if necessary) the session database at path
func OpenSessionDB(path string) (*SessionDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("failed to create schema: %w", err)}
	}
	return &SessionDB{db: db}, nil
}

// Close closes the underlying database
func (s *SessionDB) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session row. The session's messages, if
// any, are inserted as well.
func (s *SessionDB) CreateSession(session *Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StoreError{SessionID: session.ID, Op: "write", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		session.ID, session.Title, session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
	); err != nil {
		return &StoreError{SessionID: session.ID, Op: "write", Err: err}
	}
	for i, m := range session.Messages {
		if _, err := tx.Exec(
			"INSERT INTO messages (session_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?)",
			session.ID, i, string(m.Role), m.Content, m.Timestamp.Unix(),
		); err != nil {
			return &StoreError{SessionID: session.ID, Op: "write", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StoreError{SessionID: session.ID, Op: "write", Err: err}
	}
	return nil
}

// GetSession loads one session with its full transcript
func (s *SessionDB) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow("SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?", id)

	var session Session
	var created, updated int64
	if err := row.Scan(&session.ID, &session.Title, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, &StoreError{SessionID: id, Op: "query", Err: err}
	}
	session.CreatedAt = time.Unix(created, 0)
	session.UpdatedAt = time.Unix(updated, 0)

	messages, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return &session, nil
}

// ListSessions loads all sessions with their transcripts, most recently
// updated first.
func (s *SessionDB) ListSessions() ([]*Session, error) {
	rows, err := s.db.Query("SELECT id, title, created_at, updated_at FROM sessions")
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var created, updated int64
		if err := rows.Scan(&session.ID, &session.Title, &created, &updated); err != nil {
			return nil, &StoreError{Op: "query", Err: err}
		}
		session.CreatedAt = time.Unix(created, 0)
		session.UpdatedAt = time.Unix(updated, 0)
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	for _, session := range sessions {
		messages, err := s.loadMessages(session.ID)
		if err != nil {
			return nil, err
		}
		session.Messages = messages
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// UpdateTitle sets a session's title and bumps its updated_at
func (s *SessionDB) UpdateTitle(id, title string) error {
	res, err := s.db.Exec(
		"UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?",
		title, time.Now().Unix(), id,
	)
	if err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session and its messages
func (s *SessionDB) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	return tx.Commit()
}

// AppendMessage appends a message at the next position and bumps the
// session's updated_at.
func (s *SessionDB) AppendMessage(id string, m Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	defer tx.Rollback()

	var next int
	row := tx.QueryRow("SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE session_id = ?", id)
	if err := row.Scan(&next); err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}

	if _, err := tx.Exec(
		"INSERT INTO messages (session_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?)",
		id, next, string(m.Role), m.Content, m.Timestamp.Unix(),
	); err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	if _, err := tx.Exec(
		"UPDATE sessions SET updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	); err != nil {
		return &StoreError{SessionID: id, Op: "write", Err: err}
	}
	return tx.Commit()
}

func (s *SessionDB) loadMessages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, &StoreError{SessionID: sessionID, Op: "query", Err: err}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role string
		var ts int64
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, &StoreError{SessionID: sessionID, Op: "query", Err: err}
		}
		m.Role = Role(role)
		m.Timestamp = time.Unix(ts, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{SessionID: sessionID, Op: "query", Err: err}
	}
	return messages, nil
}
