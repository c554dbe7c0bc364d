package interfaces

import (
	"context"
	"encoding/json"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ToolDefinition describes one callable tool advertised to the model.
// Properties holds the JSON Schema properties of the tool's input object.
type ToolDefinition struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult carries the outcome of one executed tool call back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// ModelResponse is the decoded result of one model call. ToolCalls is
// non-empty when the model stopped to request tool execution.
type ModelResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// ModelTurn is one turn carried into a model call. Alongside Role/Content,
// assistant turns may carry the ToolCalls the model issued, and user turns
// may carry the ToolResults answering them.
type ModelTurn struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// LLMService defines the interface for chat completions against a language
// model provider, with optional tool use.
type LLMService interface {
	// Chat generates a completion from the conversation history.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - system: System prompt, may be empty
	//   - messages: Conversation history in chronological order
	//
	// Returns:
	//   - string: Generated assistant response
	//   - error: Error if chat completion fails
	Chat(ctx context.Context, system string, messages []Message) (string, error)

	// ChatWithTools generates a completion with the given tools advertised
	// to the model. Pass nil tools to forbid further tool use.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - system: System prompt, may be empty
	//   - turns: Conversation turns including tool calls and results
	//   - tools: Tool definitions the model may invoke, nil for none
	//
	// Returns:
	//   - *ModelResponse: Text and any tool calls the model requested
	//   - error: Error if the model call fails
	ChatWithTools(ctx context.Context, system string, turns []ModelTurn, tools []ToolDefinition) (*ModelResponse, error)
}
