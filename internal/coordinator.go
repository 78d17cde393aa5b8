package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// LifecycleState tracks coordinator startup
type LifecycleState int

const (
	Uninitialized LifecycleState = iota
	Initializing
	Ready
)

// SessionCache holds the client-side view of the session list and the
// current transcript. The backend is the source of truth; the cache is
// refreshed at the explicit points the coordinator defines. Not safe
// for concurrent use on its own; the coordinator serializes access.
type SessionCache struct {
	sessions []*Session
	current  *Session
}

// NewSessionCache returns an empty cache
func NewSessionCache() *SessionCache {
	return &SessionCache{}
}

// Summaries returns the cached session list, most recently updated
// first, as last fetched.
func (c *SessionCache) Summaries() []*Session {
	out := make([]*Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Current returns the cached current session, or nil
func (c *SessionCache) Current() *Session {
	return c.current
}

func (c *SessionCache) setSessions(sessions []*Session) {
	c.sessions = sessions
}

func (c *SessionCache) setCurrent(s *Session) {
	c.current = s
}

func (c *SessionCache) appendToCurrent(m Message) {
	if c.current != nil {
		c.current.Messages = append(c.current.Messages, m)
	}
}

func (c *SessionCache) setTitle(id, title string) {
	for _, s := range c.sessions {
		if s.ID == id {
			s.Title = title
		}
	}
	if c.current != nil && c.current.ID == id {
		c.current.Title = title
	}
}

func (c *SessionCache) remove(id string) {
	kept := c.sessions[:0]
	for _, s := range c.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	c.sessions = kept
	if c.current != nil && c.current.ID == id {
		c.current = nil
	}
}

// toolSeedDelay gives tool servers a moment to come up before the
// startup tool query runs.
const toolSeedDelay = 500 * time.Millisecond

// SyncCoordinator serializes every mutation of the session cache and
// the active tool set against backend round trips and push events.
// User actions and event handling funnel through one mutex, so cache
// state never reflects an interleaving of two half-applied responses.
type SyncCoordinator struct {
	mu      sync.Mutex
	backend Backend
	bridge  *EventBridge
	cache   *SessionCache
	tools   *ActiveToolSet

	state       LifecycleState
	loading     bool
	agentStatus *AgentStatus
	torn        bool

	cancelSub func()
	seedDelay time.Duration
}

// NewSyncCoordinator builds a coordinator over the backend. Nothing is
// fetched until Start.
func NewSyncCoordinator(backend Backend) *SyncCoordinator {
	return &SyncCoordinator{
		backend:   backend,
		bridge:    NewEventBridge(),
		cache:     NewSessionCache(),
		tools:     NewActiveToolSet(),
		seedDelay: toolSeedDelay,
	}
}

// Start runs the startup sequence: fetch the session list, select the
// most recent session or create a fresh one, and begin consuming push
// events. A delayed tool query seeds the active set concurrently. On
// error the coordinator still ends up Ready with an empty cache; the
// caller surfaces the error once and the user retries by acting again.
func (s *SyncCoordinator) Start(ctx context.Context) error {
	s.mu.Lock()
	s.state = Initializing
	s.mu.Unlock()

	go s.bridge.Run(s.backend.ServerEvents(), s.backend.AgentEvents())
	notifications, cancel := s.bridge.Subscribe()
	s.mu.Lock()
	s.cancelSub = cancel
	s.mu.Unlock()
	go s.consumeEvents(notifications)

	go func() {
		time.Sleep(s.seedDelay)
		s.refreshTools(ctx)
	}()

	err := s.initializeSessions(ctx)

	s.mu.Lock()
	s.state = Ready
	s.mu.Unlock()
	return err
}

func (s *SyncCoordinator) initializeSessions(ctx context.Context) error {
	sessions, err := s.backend.GetAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	var current *Session
	if len(sessions) > 0 {
		current, err = s.backend.SelectSession(ctx, sessions[0].ID)
	} else {
		current, err = s.backend.FinalizeAndNewChat(ctx)
	}
	if err != nil {
		return fmt.Errorf("establishing current session: %w", err)
	}

	// Selection may have finalized or retitled sessions server-side.
	sessions, err = s.backend.GetAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("reloading sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return nil
	}
	s.cache.setSessions(sessions)
	s.cache.setCurrent(current)
	return nil
}

// Teardown cancels the event subscription and suppresses any state
// application from calls still in flight.
func (s *SyncCoordinator) Teardown() {
	s.mu.Lock()
	s.torn = true
	cancel := s.cancelSub
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// State reports the lifecycle state
func (s *SyncCoordinator) State() LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a send is in flight
func (s *SyncCoordinator) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// AgentStatus returns the transient status of the in-flight agent
// task, or nil.
func (s *SyncCoordinator) AgentStatus() *AgentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentStatus
}

// Sessions returns the cached session summaries
func (s *SyncCoordinator) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Summaries()
}

// CurrentSession returns a copy of the cached current transcript, or
// nil when none is established.
func (s *SyncCoordinator) CurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Current() == nil {
		return nil
	}
	return s.cache.Current().Clone()
}

// ToggleTool flips a tool in the active set
func (s *SyncCoordinator) ToggleTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.Toggle(name)
}

// ActiveTools returns the current active tool names, sorted
func (s *SyncCoordinator) ActiveTools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools.Snapshot()
}

// NewChat finalizes the current session and adopts a fresh one. When
// the current session is already empty and untitled this is a no-op, so
// repeated requests never pile up redundant empty sessions.
func (s *SyncCoordinator) NewChat(ctx context.Context) error {
	s.mu.Lock()
	current := s.cache.Current()
	if current != nil && current.IsEmpty() && current.IsUntitled() {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	session, err := s.backend.FinalizeAndNewChat(ctx)
	if err != nil {
		return err
	}
	sessions, err := s.backend.GetAllSessions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return nil
	}
	s.cache.setSessions(sessions)
	s.cache.setCurrent(session)
	return nil
}

// SelectSession makes another session current. The visible transcript
// swaps only after both the selection and the list reload have
// completed, so the old transcript never shows under the new session's
// title.
func (s *SyncCoordinator) SelectSession(ctx context.Context, id string) error {
	session, err := s.backend.SelectSession(ctx, id)
	if err != nil {
		return err
	}
	sessions, err := s.backend.GetAllSessions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return nil
	}
	s.cache.setSessions(sessions)
	s.cache.setCurrent(session)
	return nil
}

// RenameSession sets a session's title. The current session's title is
// updated locally before the backend acknowledges, so the list reflects
// the rename without another round trip; other sessions wait for the
// acknowledgment.
func (s *SyncCoordinator) RenameSession(ctx context.Context, id, newTitle string) error {
	s.mu.Lock()
	current := s.cache.Current()
	optimistic := current != nil && current.ID == id
	if optimistic {
		s.cache.setTitle(id, newTitle)
	}
	s.mu.Unlock()

	if err := s.backend.RenameSession(ctx, id, newTitle); err != nil {
		return err
	}

	if !optimistic {
		s.mu.Lock()
		if !s.torn {
			s.cache.setTitle(id, newTitle)
		}
		s.mu.Unlock()
	}
	return nil
}

// DeleteSession removes a session after the backend acknowledges. When
// the current session is deleted the current pointer clears; the next
// send runs the new-chat path first.
func (s *SyncCoordinator) DeleteSession(ctx context.Context, id string) error {
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return nil
	}
	s.cache.remove(id)
	return nil
}

// SendMessage appends the user's message optimistically, runs the agent
// task with the active tool snapshot, and appends the reply. A failed
// task appends an assistant-role error message instead of rolling the
// user message back, so the conversation keeps its continuity. The
// transient agent status is cleared when the call settles whether or
// not a clearing event arrived.
func (s *SyncCoordinator) SendMessage(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	needNewChat := s.cache.Current() == nil
	s.mu.Unlock()
	if needNewChat {
		if err := s.NewChat(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache.appendToCurrent(Message{Role: RoleUser, Content: trimmed, Timestamp: time.Now()})
	s.loading = true
	snapshot := s.tools.Snapshot()
	s.mu.Unlock()

	reply, err := s.backend.RunAgentTask(ctx, trimmed, snapshot)

	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return nil
	}
	content := reply
	if err != nil {
		content = fmt.Sprintf("Error: %v", err)
	}
	s.cache.appendToCurrent(Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()})
	s.loading = false
	s.agentStatus = nil
	s.mu.Unlock()

	// Titles auto-derived from first message content live server-side.
	if sessions, listErr := s.backend.GetAllSessions(ctx); listErr == nil {
		s.mu.Lock()
		if !s.torn {
			s.cache.setSessions(sessions)
		}
		s.mu.Unlock()
	} else {
		LogWarn("refreshing session list after send: %v", listErr)
	}
	return err
}

// consumeEvents applies push notifications until the subscription is
// cancelled.
func (s *SyncCoordinator) consumeEvents(notifications <-chan Notification) {
	for n := range notifications {
		switch n.Kind {
		case ServerStatusNotification:
			s.refreshTools(context.Background())
		case AgentStatusNotification:
			s.mu.Lock()
			if !s.torn && s.loading {
				s.agentStatus = n.AgentStatus
			}
			s.mu.Unlock()
		}
	}
}

// refreshTools re-queries all discoverable tools and overwrites the
// active set. Concurrent refreshes both funnel through the mutex, so
// the set always holds one complete query result; with overlapping
// queries the last to resolve wins.
func (s *SyncCoordinator) refreshTools(ctx context.Context) {
	names, err := s.backend.GetAllDiscoveredTools(ctx)
	if err != nil {
		LogWarn("querying discoverable tools: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return
	}
	s.tools.ReplaceAll(names)
}
