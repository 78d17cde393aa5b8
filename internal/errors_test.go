package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &ConfigError{
		Path: "/etc/trustagent/settings.json",
		Op:   "read",
		Err:  originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "config error") {
		t.Errorf("ConfigError.Error() should contain 'config error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/etc/trustagent/settings.json") {
		t.Errorf("ConfigError.Error() should contain path, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
}

func TestStoreError(t *testing.T) {
	originalErr := errors.New("database is locked")
	err := &StoreError{
		SessionID: "session1",
		Op:        "write",
		Err:       originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "store error") {
		t.Errorf("StoreError.Error() should contain 'store error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "session1") {
		t.Errorf("StoreError.Error() should contain session ID, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("StoreError.Unwrap() should return original error")
	}
}

func TestStoreError_NoSessionID(t *testing.T) {
	err := &StoreError{Op: "open", Err: errors.New("no such file")}
	if strings.Contains(err.Error(), "[]") {
		t.Errorf("StoreError.Error() should omit empty session ID brackets, got: %q", err.Error())
	}
}

func TestServerError(t *testing.T) {
	originalErr := errors.New("executable not found")
	err := &ServerError{
		Server: "filesystem",
		Op:     "start",
		Err:    originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "server error") {
		t.Errorf("ServerError.Error() should contain 'server error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "filesystem") {
		t.Errorf("ServerError.Error() should contain server name, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("ServerError.Unwrap() should return original error")
	}
}

func TestAgentError(t *testing.T) {
	originalErr := errors.New("network error")
	err := &AgentError{
		SessionID: "session2",
		Err:       originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "agent error") {
		t.Errorf("AgentError.Error() should contain 'agent error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "session2") {
		t.Errorf("AgentError.Error() should contain session ID, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("AgentError.Unwrap() should return original error")
	}
}
