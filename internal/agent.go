package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxToolCallSteps bounds the tool-call loop so a confused model cannot
// spin forever.
const maxToolCallSteps = 5

// toolCaller is the slice of ServerManager the agent needs
type toolCaller interface {
	FindToolServer(toolName string) (string, bool)
	CallTool(ctx context.Context, server, toolName string, args map[string]any) (string, error)
}

// chatCompleter is the slice of the OpenAI client the agent needs
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Agent runs one user request to completion against the configured
// model, letting it invoke tools via a JSON calling convention. Tool
// calls run without a deadline.
type Agent struct {
	model  string
	client chatCompleter
	tools  toolCaller
	notify func(*AgentStatus)
}

// NewAgent builds an agent from the OpenAI settings. notify receives
// status updates while a task runs and may be nil.
func NewAgent(params OpenAIParams, tools toolCaller, notify func(*AgentStatus)) (*Agent, error) {
	if params.APIKey == "" {
		return nil, &AgentError{Err: fmt.Errorf("API key is not set in the configuration file")}
	}
	cfg := openai.DefaultConfig(params.APIKey)
	if params.BaseURL != "" {
		cfg.BaseURL = params.BaseURL
	}
	return &Agent{
		model:  params.Model,
		client: openai.NewClientWithConfig(cfg),
		tools:  tools,
		notify: notify,
	}, nil
}

// toolCall is the JSON shape the model uses to request a tool
type toolCall struct {
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCall reports whether the model's reply is a tool request.
// Anything that is not a JSON object naming a tool is a final answer.
func parseToolCall(reply string) (*toolCall, bool) {
	var call toolCall
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &call); err != nil {
		return nil, false
	}
	if call.ToolName == "" {
		return nil, false
	}
	return &call, true
}

// toolCallArguments converts the raw arguments into the map the server
// expects. Null or missing arguments become nil; any non-object payload
// is dropped with a warning, matching the lenient treatment of
// malformed model output elsewhere in the loop.
func toolCallArguments(call *toolCall) map[string]any {
	if len(call.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		LogWarn("tool arguments for %q are not a JSON object, ignoring: %s", call.ToolName, call.Arguments)
		return nil
	}
	return args
}

// buildSystemPrompt describes the available tools and the calling
// convention to the model.
func buildSystemPrompt(tools []ToolDescriptor) string {
	var list strings.Builder
	for _, tool := range tools {
		fmt.Fprintf(&list, "- %s: %s\n", tool.ToolName, tool.Description)
	}
	return fmt.Sprintf("You are a helpful AI assistant that can use tools to answer questions.\n\n"+
		"Available tools:\n%s\n"+
		"When you need to use a tool, respond ONLY with a JSON object in the following format: "+
		`{ "tool_name": "<tool_name>", "arguments": {<arguments>} }. `+
		"Do not include any other text or explanations. "+
		"When you have the final answer, respond with the answer directly as plain text.",
		list.String())
}

// RunTask drives the model until it produces a final answer. history is
// the conversation so far, ending with the user's new message; tools
// are the ones the user has enabled. Any status pushed through notify
// is cleared before RunTask returns, success or not.
func (a *Agent) RunTask(ctx context.Context, history []Message, tools []ToolDescriptor) (string, error) {
	defer a.status(nil)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: buildSystemPrompt(tools),
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	enabled := make(map[string]bool, len(tools))
	for _, tool := range tools {
		enabled[tool.ToolName] = true
	}

	for step := 0; step < maxToolCallSteps; step++ {
		LogDebug("agent loop step %d", step+1)
		a.status(&AgentStatus{State: AgentThinking})

		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
		})
		if err != nil {
			return "", &AgentError{Err: err}
		}

		reply := "No response received"
		if len(resp.Choices) > 0 {
			reply = resp.Choices[0].Message.Content
		}

		call, isCall := parseToolCall(reply)
		if !isCall {
			return reply, nil
		}

		if !enabled[call.ToolName] {
			return "", &AgentError{Err: fmt.Errorf("tool %q not found", call.ToolName)}
		}
		server, ok := a.tools.FindToolServer(call.ToolName)
		if !ok {
			return "", &AgentError{Err: fmt.Errorf("no running server provides tool %q", call.ToolName)}
		}

		a.status(&AgentStatus{State: AgentUsingTool, ToolName: call.ToolName})
		LogInfo("agent calling tool %s on %s", call.ToolName, server)

		result, err := a.tools.CallTool(ctx, server, call.ToolName, toolCallArguments(call))
		if err != nil {
			// Feed the failure back so the model can recover or report it.
			result = fmt.Sprintf("Tool execution failed: %v", err)
		}

		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Tool result for '%s':\n%s", call.ToolName, result)},
		)
	}

	return "", &AgentError{Err: fmt.Errorf("exceeded maximum of %d tool-call steps", maxToolCallSteps)}
}

func (a *Agent) status(s *AgentStatus) {
	if a.notify != nil {
		a.notify(s)
	}
}
