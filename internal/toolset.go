package internal

import "sort"

// ServerStatus is the reported state of a tool server
type ServerStatus string

const (
	ServerRunning ServerStatus = "running"
	ServerStopped ServerStatus = "stopped"
)

// ServerInfo is a server name with its current status
type ServerInfo struct {
	Name   string       `json:"name"`
	Status ServerStatus `json:"status"`
}

// ToolDescriptor identifies a tool by the server that hosts it
type ToolDescriptor struct {
	ServerName  string `json:"server_name"`
	ToolName    string `json:"tool_name"`
	Description string `json:"description"`
}

// ActiveToolSet is the user-selected set of tool names eligible for the
// next agent task. It holds process-local state only and is rebuilt from
// scratch each run. The set is not pruned when a server stops; a stale
// name is simply ignored at dispatch time because the tool is no longer
// discoverable.
//
// ActiveToolSet is not safe for concurrent use; the coordinator
// serializes access to it.
type ActiveToolSet struct {
	names map[string]struct{}
}

// NewActiveToolSet returns an empty tool set
func NewActiveToolSet() *ActiveToolSet {
	return &ActiveToolSet{names: make(map[string]struct{})}
}

// Toggle flips membership of the given tool name
func (a *ActiveToolSet) Toggle(toolName string) {
	if _, ok := a.names[toolName]; ok {
		delete(a.names, toolName)
		return
	}
	a.names[toolName] = struct{}{}
}

// Contains reports whether the tool name is currently enabled
func (a *ActiveToolSet) Contains(toolName string) bool {
	_, ok := a.names[toolName]
	return ok
}

// ReplaceAll overwrites the set with the given names. The previous
// content is discarded, not merged.
func (a *ActiveToolSet) ReplaceAll(toolNames []string) {
	names := make(map[string]struct{}, len(toolNames))
	for _, n := range toolNames {
		names[n] = struct{}{}
	}
	a.names = names
}

// Snapshot returns the enabled tool names in sorted order
func (a *ActiveToolSet) Snapshot() []string {
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of enabled tools
func (a *ActiveToolSet) Len() int {
	return len(a.names)
}
