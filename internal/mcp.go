package internal

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const clientName = "trustagent"
const clientVersion = "0.3.0"

// toolConn is one live connection to a tool server. The indirection
// exists so tests can substitute a scripted connection for a real
// subprocess.
type toolConn interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, toolName string, args map[string]any) (string, error)
	Close() error
}

// connectFunc establishes a connection to the named server
type connectFunc func(ctx context.Context, serverName string, cfg ServerConfig) (toolConn, error)

// ServerManager owns the lifecycle of configured tool servers: starting
// them as subprocesses, discovering their tools, routing calls, and
// reporting status. All methods are safe for concurrent use. Tool calls
// run without a deadline; a hung tool hangs its caller.
type ServerManager struct {
	mu      sync.Mutex
	configs map[string]ServerConfig
	conns   map[string]toolConn
	tools   map[string][]ToolDescriptor
	connect connectFunc
	notify  func()
}

// NewServerManager builds a manager over the configured servers. notify
// is invoked after every status change (start or stop) and may be nil.
func NewServerManager(configs map[string]ServerConfig, notify func()) *ServerManager {
	return &ServerManager{
		configs: configs,
		conns:   make(map[string]toolConn),
		tools:   make(map[string][]ToolDescriptor),
		connect: connectMCP,
		notify:  notify,
	}
}

// StartServer launches the named server and discovers its tools.
// Starting an already running server is a no-op.
func (m *ServerManager) StartServer(ctx context.Context, name string) error {
	m.mu.Lock()
	cfg, ok := m.configs[name]
	if !ok {
		m.mu.Unlock()
		return &ServerError{Server: name, Op: "start", Err: fmt.Errorf("server not configured")}
	}
	if _, running := m.conns[name]; running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	conn, err := m.connect(ctx, name, cfg)
	if err != nil {
		return &ServerError{Server: name, Op: "start", Err: err}
	}

	tools, err := conn.ListTools(ctx)
	if err != nil {
		conn.Close()
		return &ServerError{Server: name, Op: "list tools", Err: err}
	}

	m.mu.Lock()
	if _, running := m.conns[name]; running {
		// Lost a start race; keep the first connection.
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	m.conns[name] = conn
	m.tools[name] = tools
	m.mu.Unlock()

	LogInfo("started server %s with %d tools", name, len(tools))
	m.statusChanged()
	return nil
}

// StopServer shuts the named server down and forgets its discovered
// tools. Stopping a server that is not running is a no-op.
func (m *ServerManager) StopServer(name string) error {
	m.mu.Lock()
	conn, running := m.conns[name]
	if !running {
		m.mu.Unlock()
		return nil
	}
	delete(m.conns, name)
	delete(m.tools, name)
	m.mu.Unlock()

	if err := conn.Close(); err != nil {
		LogWarn("closing server %s: %v", name, err)
	}
	m.statusChanged()
	return nil
}

// StopAll shuts down every running server
func (m *ServerManager) StopAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]toolConn)
	m.tools = make(map[string][]ToolDescriptor)
	m.mu.Unlock()

	for name, conn := range conns {
		if err := conn.Close(); err != nil {
			LogWarn("closing server %s: %v", name, err)
		}
	}
	if len(conns) > 0 {
		m.statusChanged()
	}
}

// Servers reports every configured server with its current status,
// sorted by name.
func (m *ServerManager) Servers() []ServerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]ServerInfo, 0, len(m.configs))
	for name := range m.configs {
		status := ServerStopped
		if _, running := m.conns[name]; running {
			status = ServerRunning
		}
		infos = append(infos, ServerInfo{Name: name, Status: status})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// DiscoveredTools returns the tools the named server advertised at
// start. A stopped or unknown server yields nil.
func (m *ServerManager) DiscoveredTools(server string) []ToolDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	tools := m.tools[server]
	out := make([]ToolDescriptor, len(tools))
	copy(out, tools)
	return out
}

// AllDiscoveredTools returns every tool across running servers, sorted
// by server name then tool name.
func (m *ServerManager) AllDiscoveredTools() []ToolDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ToolDescriptor
	for _, tools := range m.tools {
		out = append(out, tools...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServerName != out[j].ServerName {
			return out[i].ServerName < out[j].ServerName
		}
		return out[i].ToolName < out[j].ToolName
	})
	return out
}

// FindToolServer resolves a tool name to the running server that
// advertises it. With duplicate tool names the lexically first server
// wins.
func (m *ServerManager) FindToolServer(toolName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var servers []string
	for server, tools := range m.tools {
		for _, tool := range tools {
			if tool.ToolName == toolName {
				servers = append(servers, server)
				break
			}
		}
	}
	if len(servers) == 0 {
		return "", false
	}
	sort.Strings(servers)
	return servers[0], true
}

// CallTool invokes a tool on a running server and returns its textual
// result.
func (m *ServerManager) CallTool(ctx context.Context, server, toolName string, args map[string]any) (string, error) {
	m.mu.Lock()
	conn, running := m.conns[server]
	m.mu.Unlock()
	if !running {
		return "", &ServerError{Server: server, Op: "call " + toolName, Err: fmt.Errorf("server not running")}
	}

	result, err := conn.CallTool(ctx, toolName, args)
	if err != nil {
		return "", &ServerError{Server: server, Op: "call " + toolName, Err: err}
	}
	return result, nil
}

func (m *ServerManager) statusChanged() {
	if m.notify != nil {
		m.notify()
	}
}

// mcpConn adapts an MCP client session to toolConn
type mcpConn struct {
	server  string
	session *mcp.ClientSession
}

func connectMCP(ctx context.Context, serverName string, cfg ServerConfig) (toolConn, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	cmd := exec.Command(cfg.Command, cfg.Args...)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Command, err)
	}
	return &mcpConn{server: serverName, session: session}, nil
}

func (c *mcpConn) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	tools := make([]ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		tools = append(tools, ToolDescriptor{
			ServerName:  c.server,
			ToolName:    tool.Name,
			Description: tool.Description,
		})
	}
	return tools, nil
}

func (c *mcpConn) CallTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	joined := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("tool reported an error: %s", joined)
	}
	return joined, nil
}

func (c *mcpConn) Close() error {
	return c.session.Close()
}
