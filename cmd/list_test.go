package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/iksnae/trustagent/internal"
)

func TestDisplaySessionList(t *testing.T) {
	tests := []struct {
		name     string
		sessions []*internal.Session
	}{
		{
			name:     "no sessions",
			sessions: nil,
		},
		{
			name: "single session",
			sessions: []*internal.Session{
				internal.CreateTestSession("session-1"),
			},
		},
		{
			name: "session with long title",
			sessions: []*internal.Session{
				{
					ID:        "session-2",
					Title:     strings.Repeat("very long title ", 10),
					UpdatedAt: time.Now(),
				},
			},
		},
		{
			name: "session without title",
			sessions: []*internal.Session{
				{ID: "session-3", UpdatedAt: time.Now()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rendering must not panic on any shape of session
			displaySessionList(tt.sessions)
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{
			name: "today",
			t:    now.Add(-time.Hour),
			want: "Today",
		},
		{
			name: "this week",
			t:    now.Add(-3 * 24 * time.Hour),
			want: now.Add(-3 * 24 * time.Hour).Format("Mon"),
		},
		{
			name: "this year",
			t:    now.Add(-60 * 24 * time.Hour),
			want: now.Add(-60 * 24 * time.Hour).Format("Jan"),
		},
		{
			name: "older",
			t:    now.Add(-2 * 365 * 24 * time.Hour),
			want: now.Add(-2 * 365 * 24 * time.Hour).Format("2006"),
		},
		{
			name: "zero time",
			t:    time.Time{},
			want: "—",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRelativeTime(tt.t)
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatRelativeTime() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}
