package internal

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// scriptedCompleter returns canned replies in order
type scriptedCompleter struct {
	replies  []string
	err      error
	requests []openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
		},
	}, nil
}

type scriptedTools struct {
	server string
	result string
	err    error
	calls  []string
}

func (s *scriptedTools) FindToolServer(toolName string) (string, bool) {
	if s.server == "" {
		return "", false
	}
	return s.server, true
}

func (s *scriptedTools) CallTool(ctx context.Context, server, toolName string, args map[string]any) (string, error) {
	s.calls = append(s.calls, toolName)
	return s.result, s.err
}

func newTestAgent(completer chatCompleter, tools toolCaller, notify func(*AgentStatus)) *Agent {
	return &Agent{model: "gpt-4-turbo", client: completer, tools: tools, notify: notify}
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantCall bool
		wantTool string
	}{
		{
			name:     "valid tool call",
			reply:    `{"tool_name": "get_weather", "arguments": {"city": "Lisbon"}}`,
			wantCall: true,
			wantTool: "get_weather",
		},
		{
			name:     "tool call with surrounding whitespace",
			reply:    "\n  {\"tool_name\": \"search\", \"arguments\": {}}  \n",
			wantCall: true,
			wantTool: "search",
		},
		{
			name:     "plain text answer",
			reply:    "The weather in Lisbon is sunny.",
			wantCall: false,
		},
		{
			name:     "json without tool_name",
			reply:    `{"answer": 42}`,
			wantCall: false,
		},
		{
			name:     "json array",
			reply:    `["get_weather"]`,
			wantCall: false,
		},
		{
			name:     "empty reply",
			reply:    "",
			wantCall: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := parseToolCall(tt.reply)
			if ok != tt.wantCall {
				t.Fatalf("parseToolCall() ok = %v, want %v", ok, tt.wantCall)
			}
			if ok && call.ToolName != tt.wantTool {
				t.Errorf("parseToolCall() tool = %q, want %q", call.ToolName, tt.wantTool)
			}
		})
	}
}

func TestToolCallArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "object", raw: `{"city": "Lisbon", "units": "metric"}`, want: 2},
		{name: "null", raw: `null`, want: 0},
		{name: "missing", raw: ``, want: 0},
		{name: "non-object is dropped", raw: `"bare string"`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &toolCall{ToolName: "x", Arguments: []byte(tt.raw)}
			args := toolCallArguments(call)
			if len(args) != tt.want {
				t.Errorf("toolCallArguments() = %v, want %d entries", args, tt.want)
			}
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt([]ToolDescriptor{
		{ServerName: "weather", ToolName: "get_weather", Description: "current conditions"},
		{ServerName: "files", ToolName: "read_file", Description: "read a file"},
	})

	for _, want := range []string{"- get_weather: current conditions", "- read_file: read a file", `"tool_name"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestAgent_DirectAnswer(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"Paris is the capital of France."}}
	agent := newTestAgent(completer, &scriptedTools{}, nil)

	answer, err := agent.RunTask(context.Background(), []Message{
		{Role: RoleUser, Content: "What is the capital of France?"},
	}, nil)
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("RunTask() = %q", answer)
	}

	req := completer.requests[0]
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", req.Messages[0].Role)
	}
	if req.Messages[len(req.Messages)-1].Content != "What is the capital of France?" {
		t.Errorf("last request message = %q, want the user prompt", req.Messages[len(req.Messages)-1].Content)
	}
}

func TestAgent_ToolCallThenAnswer(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"tool_name": "get_weather", "arguments": {"city": "Lisbon"}}`,
		"It is sunny in Lisbon.",
	}}
	tools := &scriptedTools{server: "weather", result: "sunny, 22C"}

	var statuses []*AgentStatus
	agent := newTestAgent(completer, tools, func(s *AgentStatus) { statuses = append(statuses, s) })

	answer, err := agent.RunTask(context.Background(), []Message{
		{Role: RoleUser, Content: "Weather in Lisbon?"},
	}, []ToolDescriptor{{ServerName: "weather", ToolName: "get_weather", Description: "current conditions"}})
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if answer != "It is sunny in Lisbon." {
		t.Errorf("RunTask() = %q", answer)
	}
	if len(tools.calls) != 1 || tools.calls[0] != "get_weather" {
		t.Errorf("tool calls = %v, want [get_weather]", tools.calls)
	}

	// Second request must carry the tool result back as a user message.
	second := completer.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != openai.ChatMessageRoleUser || !strings.Contains(last.Content, "Tool result for 'get_weather'") {
		t.Errorf("tool result message = %+v", last)
	}
	if !strings.Contains(last.Content, "sunny, 22C") {
		t.Errorf("tool result content missing payload: %q", last.Content)
	}

	// thinking, using_tool, thinking, cleared.
	want := []string{"thinking", "using_tool", "thinking", "cleared"}
	if len(statuses) != len(want) {
		t.Fatalf("got %d status updates, want %d", len(statuses), len(want))
	}
	for i, s := range statuses {
		got := "cleared"
		if s != nil {
			got = string(s.State)
		}
		if got != want[i] {
			t.Errorf("status %d = %s, want %s", i, got, want[i])
		}
	}
	if statuses[1].ToolName != "get_weather" {
		t.Errorf("using_tool status tool = %q, want get_weather", statuses[1].ToolName)
	}
}

func TestAgent_ToolFailureFedBack(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"tool_name": "get_weather", "arguments": {}}`,
		"I could not retrieve the weather.",
	}}
	tools := &scriptedTools{server: "weather", err: errors.New("connection refused")}
	agent := newTestAgent(completer, tools, nil)

	answer, err := agent.RunTask(context.Background(), []Message{
		{Role: RoleUser, Content: "Weather?"},
	}, []ToolDescriptor{{ToolName: "get_weather"}})
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if answer != "I could not retrieve the weather." {
		t.Errorf("RunTask() = %q", answer)
	}

	second := completer.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "Tool execution failed") {
		t.Errorf("failure not fed back to model: %q", last.Content)
	}
}

func TestAgent_UnknownToolFails(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"tool_name": "made_up_tool", "arguments": {}}`,
	}}
	agent := newTestAgent(completer, &scriptedTools{server: "weather"}, nil)

	_, err := agent.RunTask(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	}, []ToolDescriptor{{ToolName: "get_weather"}})
	if err == nil {
		t.Fatal("RunTask() with unknown tool succeeded")
	}
	if !strings.Contains(err.Error(), "made_up_tool") {
		t.Errorf("RunTask() error = %v, want mention of made_up_tool", err)
	}
}

func TestAgent_StepLimit(t *testing.T) {
	replies := make([]string, maxToolCallSteps)
	for i := range replies {
		replies[i] = `{"tool_name": "get_weather", "arguments": {}}`
	}
	completer := &scriptedCompleter{replies: replies}
	tools := &scriptedTools{server: "weather", result: "sunny"}
	agent := newTestAgent(completer, tools, nil)

	_, err := agent.RunTask(context.Background(), []Message{
		{Role: RoleUser, Content: "loop forever"},
	}, []ToolDescriptor{{ToolName: "get_weather"}})
	if err == nil {
		t.Fatal("RunTask() succeeded despite endless tool calls")
	}
	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		t.Errorf("RunTask() error = %T, want *AgentError", err)
	}
	if len(tools.calls) != maxToolCallSteps {
		t.Errorf("tool called %d times, want %d", len(tools.calls), maxToolCallSteps)
	}
}

func TestAgent_CompletionErrorClearsStatus(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("network error")}

	var statuses []*AgentStatus
	agent := newTestAgent(completer, &scriptedTools{}, func(s *AgentStatus) { statuses = append(statuses, s) })

	_, err := agent.RunTask(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("RunTask() succeeded despite completion error")
	}
	if len(statuses) == 0 || statuses[len(statuses)-1] != nil {
		t.Errorf("final status = %+v, want nil (cleared)", statuses[len(statuses)-1])
	}
}
