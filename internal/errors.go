package internal

import "fmt"

// ConfigError represents errors loading or writing the settings file
type ConfigError struct {
	Path string
	Op   string // "read", "write", "parse"
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing the session database
type StoreError struct {
	SessionID string
	Op        string // "open", "query", "write"
	Err       error
}

func (e *StoreError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store error: %s [%s]: %v", e.Op, e.SessionID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ServerError represents errors starting, stopping or querying a tool server
type ServerError struct {
	Server string
	Op     string // "start", "stop", "list_tools", "call_tool"
	Err    error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error [%s] %s: %v", e.Server, e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// AgentError represents errors from an agent task run
type AgentError struct {
	SessionID string
	Err       error
}

func (e *AgentError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("agent error: %v", e.Err)
	}
	return fmt.Sprintf("agent error [%s]: %v", e.SessionID, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
