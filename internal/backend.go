package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoCurrentSession is returned when an operation needs a current
// session and none has been established yet.
var ErrNoCurrentSession = errors.New("no current session")

// defaultSystemPrompt seeds every conversation before its first
// completion request.
const defaultSystemPrompt = "You are a helpful AI assistant."

// eventBuffer bounds the push channels so a slow consumer loses events
// instead of blocking backend operations.
const eventBuffer = 16

// Backend is the full command surface the client drives. Every
// operation may fail; none enforces a timeout, so a caller that needs
// one must arrange its own context deadline.
type Backend interface {
	GetAllSessions(ctx context.Context) ([]*Session, error)
	GetCurrentSession(ctx context.Context) (*Session, error)
	FinalizeAndNewChat(ctx context.Context) (*Session, error)
	SelectSession(ctx context.Context, id string) (*Session, error)
	RenameSession(ctx context.Context, id, newTitle string) error
	DeleteSession(ctx context.Context, id string) error
	RunAgentTask(ctx context.Context, message string, activeTools []string) (string, error)
	GetMCPServers(ctx context.Context) ([]ServerInfo, error)
	StartMCPServer(ctx context.Context, name string) error
	StopMCPServer(ctx context.Context, name string) error
	GetDiscoveredTools(ctx context.Context, server string) ([]string, error)
	GetAllDiscoveredTools(ctx context.Context) ([]string, error)
	OpenConfigFile(ctx context.Context) error

	// ServerEvents signals after any server status change; the consumer
	// re-queries rather than receiving a payload.
	ServerEvents() <-chan struct{}
	// AgentEvents carries agent status updates; nil means cleared.
	AgentEvents() <-chan *AgentStatus

	Close() error
}

// LocalBackend implements Backend in-process over the session database,
// the search index, the server manager, and the configured model.
// The current-session pointer lives only in memory; restarting the
// process starts with no current session.
type LocalBackend struct {
	mu           sync.Mutex
	db           *SessionDB
	index        *SearchIndex
	config       AppConfig
	settingsPath string
	servers      *ServerManager
	currentID    string
	serverCh     chan struct{}
	agentCh      chan *AgentStatus
	closed       bool

	// newAgent is swapped out in tests to avoid real completions
	newAgent func(OpenAIParams, toolCaller, func(*AgentStatus)) (*Agent, error)
}

// NewLocalBackend wires a backend over an open database and index. It
// takes ownership of neither; the caller closes them after Close.
func NewLocalBackend(db *SessionDB, index *SearchIndex, cfg AppConfig, settingsPath string) *LocalBackend {
	b := &LocalBackend{
		db:           db,
		index:        index,
		config:       cfg,
		settingsPath: settingsPath,
		serverCh:     make(chan struct{}, eventBuffer),
		agentCh:      make(chan *AgentStatus, eventBuffer),
		newAgent:     NewAgent,
	}
	b.servers = NewServerManager(cfg.MCPServers, b.pushServerEvent)
	return b
}

func (b *LocalBackend) GetAllSessions(ctx context.Context) ([]*Session, error) {
	return b.db.ListSessions()
}

func (b *LocalBackend) GetCurrentSession(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	id := b.currentID
	b.mu.Unlock()
	if id == "" {
		return nil, ErrNoCurrentSession
	}
	return b.db.GetSession(id)
}

// FinalizeAndNewChat closes out the current session and opens a fresh
// one. An empty current session is deleted outright; a non-empty one
// still carrying the placeholder title gets an auto-generated title.
func (b *LocalBackend) FinalizeAndNewChat(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.finalizeCurrentLocked(); err != nil {
		return nil, err
	}

	session, err := b.createSessionLocked()
	if err != nil {
		return nil, err
	}
	b.currentID = session.ID
	return session, nil
}

// SelectSession makes the identified session current, finalizing the
// previously current one first. Selecting the current session again is
// a no-op beyond returning it.
func (b *LocalBackend) SelectSession(ctx context.Context, id string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id != b.currentID {
		if err := b.finalizeCurrentLocked(); err != nil {
			return nil, err
		}
	}

	session, err := b.db.GetSession(id)
	if err != nil {
		return nil, err
	}
	b.currentID = id
	return session, nil
}

// RenameSession sets a session's title. Renaming a missing session is a
// no-op.
func (b *LocalBackend) RenameSession(ctx context.Context, id, newTitle string) error {
	err := b.db.UpdateTitle(id, newTitle)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return b.reindexSession(id)
}

func (b *LocalBackend) DeleteSession(ctx context.Context, id string) error {
	if err := b.db.DeleteSession(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	if err := b.index.RemoveSession(id); err != nil {
		LogWarn("removing session %s from search index: %v", id, err)
	}

	b.mu.Lock()
	if b.currentID == id {
		b.currentID = ""
	}
	b.mu.Unlock()
	return nil
}

// RunAgentTask appends the user's message to the current session
// (creating one when none exists), runs the agent to completion with
// the named tools, persists the reply, and returns it. The user message
// stays persisted even when the task fails.
func (b *LocalBackend) RunAgentTask(ctx context.Context, message string, activeTools []string) (string, error) {
	b.mu.Lock()
	id := b.currentID
	if id == "" {
		session, err := b.createSessionLocked()
		if err != nil {
			b.mu.Unlock()
			return "", err
		}
		id = session.ID
		b.currentID = id
	}
	b.mu.Unlock()

	session, err := b.db.GetSession(id)
	if err != nil {
		return "", err
	}

	hasSystem := false
	for _, m := range session.Messages {
		if m.Role == RoleSystem {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		sys := Message{Role: RoleSystem, Content: defaultSystemPrompt, Timestamp: time.Now()}
		if err := b.db.AppendMessage(id, sys); err != nil {
			return "", err
		}
		session.Messages = append(session.Messages, sys)
	}

	userMsg := Message{Role: RoleUser, Content: message, Timestamp: time.Now()}
	if err := b.db.AppendMessage(id, userMsg); err != nil {
		return "", err
	}
	session.Messages = append(session.Messages, userMsg)

	agent, err := b.newAgent(b.config.OpenAI, b.servers, b.pushAgentStatus)
	if err != nil {
		return "", err
	}

	history := SelectContextMessages(session.Messages, 0)
	reply, err := agent.RunTask(ctx, history, b.resolveTools(activeTools))
	if err != nil {
		return "", &AgentError{SessionID: id, Err: err}
	}

	if err := b.db.AppendMessage(id, Message{Role: RoleAssistant, Content: reply, Timestamp: time.Now()}); err != nil {
		return "", err
	}
	if err := b.reindexSession(id); err != nil {
		LogWarn("reindexing session %s: %v", id, err)
	}
	return reply, nil
}

func (b *LocalBackend) GetMCPServers(ctx context.Context) ([]ServerInfo, error) {
	return b.servers.Servers(), nil
}

func (b *LocalBackend) StartMCPServer(ctx context.Context, name string) error {
	return b.servers.StartServer(ctx, name)
}

func (b *LocalBackend) StopMCPServer(ctx context.Context, name string) error {
	return b.servers.StopServer(name)
}

func (b *LocalBackend) GetDiscoveredTools(ctx context.Context, server string) ([]string, error) {
	return toolNames(b.servers.DiscoveredTools(server)), nil
}

func (b *LocalBackend) GetAllDiscoveredTools(ctx context.Context) ([]string, error) {
	return toolNames(b.servers.AllDiscoveredTools()), nil
}

func (b *LocalBackend) OpenConfigFile(ctx context.Context) error {
	return OpenInEditor(b.settingsPath)
}

func (b *LocalBackend) ServerEvents() <-chan struct{} {
	return b.serverCh
}

func (b *LocalBackend) AgentEvents() <-chan *AgentStatus {
	return b.agentCh
}

// Close stops every running server and closes the push channels. The
// database and index stay open for the caller to close.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.servers.StopAll()

	b.mu.Lock()
	close(b.serverCh)
	close(b.agentCh)
	b.mu.Unlock()
	return nil
}

// finalizeCurrentLocked applies the end-of-life rules to the current
// session: delete it when empty, auto-title it when untitled. Callers
// hold b.mu.
func (b *LocalBackend) finalizeCurrentLocked() error {
	if b.currentID == "" {
		return nil
	}
	id := b.currentID

	session, err := b.db.GetSession(id)
	if errors.Is(err, ErrSessionNotFound) {
		b.currentID = ""
		return nil
	}
	if err != nil {
		return err
	}

	if session.IsEmpty() {
		if err := b.db.DeleteSession(id); err != nil {
			return err
		}
		if err := b.index.RemoveSession(id); err != nil {
			LogWarn("removing session %s from search index: %v", id, err)
		}
	} else if session.IsUntitled() {
		if err := b.db.UpdateTitle(id, GenerateSessionTitle(session.Messages)); err != nil {
			return err
		}
		if err := b.reindexSession(id); err != nil {
			LogWarn("reindexing session %s: %v", id, err)
		}
	}

	b.currentID = ""
	return nil
}

func (b *LocalBackend) createSessionLocked() (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Title:     DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.db.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (b *LocalBackend) reindexSession(id string) error {
	session, err := b.db.GetSession(id)
	if err != nil {
		return err
	}
	return b.index.AddOrUpdateSession(session)
}

// resolveTools maps active tool names to descriptors of currently
// discovered tools. Names whose server has stopped resolve to nothing;
// they stay in the active set but are simply unavailable to the agent.
func (b *LocalBackend) resolveTools(activeTools []string) []ToolDescriptor {
	active := make(map[string]bool, len(activeTools))
	for _, name := range activeTools {
		active[name] = true
	}
	var tools []ToolDescriptor
	for _, tool := range b.servers.AllDiscoveredTools() {
		if active[tool.ToolName] {
			tools = append(tools, tool)
		}
	}
	return tools
}

func (b *LocalBackend) pushServerEvent() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.serverCh <- struct{}{}:
	default:
		LogWarn("server event channel full, dropping event")
	}
}

func (b *LocalBackend) pushAgentStatus(status *AgentStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.agentCh <- status:
	default:
		LogWarn("agent event channel full, dropping status update")
	}
}

func toolNames(tools []ToolDescriptor) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.ToolName)
	}
	return names
}

var _ Backend = (*LocalBackend)(nil)
