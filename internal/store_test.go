package internal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iksnae/trustagent/testutil"
)

func openTestDB(t *testing.T) *SessionDB {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	db, err := OpenSessionDB(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSessionDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionDB_CreateAndGet(t *testing.T) {
	db := openTestDB(t)

	session := CreateTestSession("s1")
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("session ID = %q, want %q", got.ID, "s1")
	}
	if got.Title != "Test Conversation" {
		t.Errorf("session title = %q, want %q", got.Title, "Test Conversation")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("session has %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != RoleUser || got.Messages[1].Role != RoleAssistant {
		t.Errorf("message roles = %q, %q, want user, assistant", got.Messages[0].Role, got.Messages[1].Role)
	}
}

func TestSessionDB_GetMissing(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetSession("no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionDB_ListOrderedByUpdatedAt(t *testing.T) {
	db := openTestDB(t)

	old := CreateTestSession("old")
	old.UpdatedAt = time.Now().Add(-time.Hour)
	recent := CreateTestSession("recent")
	recent.UpdatedAt = time.Now()

	if err := db.CreateSession(old); err != nil {
		t.Fatalf("CreateSession(old) error = %v", err)
	}
	if err := db.CreateSession(recent); err != nil {
		t.Fatalf("CreateSession(recent) error = %v", err)
	}

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("ListSessions() returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "recent" {
		t.Errorf("first listed session = %q, want %q", sessions[0].ID, "recent")
	}
	if sessions[1].ID != "old" {
		t.Errorf("second listed session = %q, want %q", sessions[1].ID, "old")
	}
}

func TestSessionDB_AppendMessage(t *testing.T) {
	db := openTestDB(t)

	session := CreateTestSessionWithMessages("s1", nil)
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	msgs := []Message{
		{Role: RoleUser, Content: "first", Timestamp: time.Now()},
		{Role: RoleAssistant, Content: "second", Timestamp: time.Now()},
		{Role: RoleUser, Content: "third", Timestamp: time.Now()},
	}
	for _, m := range msgs {
		if err := db.AppendMessage("s1", m); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	got, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("session has %d messages, want 3", len(got.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got.Messages[i].Content != want {
			t.Errorf("message %d content = %q, want %q", i, got.Messages[i].Content, want)
		}
	}
}

func TestSessionDB_UpdateTitle(t *testing.T) {
	db := openTestDB(t)

	session := CreateTestSession("s1")
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := db.UpdateTitle("s1", "Trip Planning"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}

	got, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Title != "Trip Planning" {
		t.Errorf("title after update = %q, want %q", got.Title, "Trip Planning")
	}

	if err := db.UpdateTitle("missing", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("UpdateTitle(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionDB_DeleteSession(t *testing.T) {
	db := openTestDB(t)

	session := CreateTestSession("s1")
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := db.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := db.GetSession("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionDB_OpensFixture(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	dbPath := testutil.CreateSessionDBFixture(t, dir)

	db, err := OpenSessionDB(dbPath)
	if err != nil {
		t.Fatalf("OpenSessionDB() error = %v", err)
	}
	defer db.Close()

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("fixture has %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "fixture-1" {
		t.Errorf("most recent fixture session = %q, want fixture-1", sessions[0].ID)
	}
	if len(sessions[0].Messages) != 2 {
		t.Errorf("fixture-1 has %d messages, want 2", len(sessions[0].Messages))
	}
}
