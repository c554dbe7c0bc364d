package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/search"
)

// mockLLM scripts model behavior: it requests a tool call on every call
// that advertises tools, and answers directly otherwise.
type mockLLM struct {
	calls       int
	requestTool bool
	failOnCall  int
	seenTools   [][]interfaces.ToolDefinition
	seenTurns   [][]interfaces.ModelTurn
}

func (m *mockLLM) Chat(ctx context.Context, system string, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("not used")
}

func (m *mockLLM) ChatWithTools(ctx context.Context, system string, turns []interfaces.ModelTurn, tools []interfaces.ToolDefinition) (*interfaces.ModelResponse, error) {
	m.calls++
	m.seenTools = append(m.seenTools, tools)
	m.seenTurns = append(m.seenTurns, turns)

	if m.failOnCall > 0 && m.calls == m.failOnCall {
		return nil, fmt.Errorf("%w: scripted failure", models.ErrModelCall)
	}
	if m.requestTool && len(tools) > 0 {
		return &interfaces.ModelResponse{
			ToolCalls: []interfaces.ToolCall{
				{ID: "toolu_1", Name: search.ToolName, Input: json.RawMessage(`{"query": "assertions"}`)},
			},
			StopReason: "tool_use",
		}, nil
	}
	return &interfaces.ModelResponse{Text: "final answer", StopReason: "end_turn"}, nil
}

// countingTool tracks executions and returns canned output
type countingTool struct {
	executions int
	failWith   error
	sources    []models.Source
}

func (t *countingTool) Definition() interfaces.ToolDefinition {
	return interfaces.ToolDefinition{
		Name:       search.ToolName,
		Properties: map[string]interface{}{},
		Required:   []string{"query"},
	}
}

func (t *countingTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	t.executions++
	if t.failWith != nil {
		return "", t.failWith
	}
	return "[Course - Lesson 1]\ntool output", nil
}

func (t *countingTool) LastSources() []models.Source { return t.sources }
func (t *countingTool) ResetSources()                { t.sources = nil }

func newToolManager(t *testing.T, tool interfaces.Tool) *search.ToolManager {
	t.Helper()
	manager := search.NewToolManager()
	require.NoError(t, manager.Register(tool))
	return manager
}

func TestGenerateSingleToolRoundTrip(t *testing.T) {
	llm := &mockLLM{requestTool: true}
	tool := &countingTool{}
	generator := NewAnswerGenerator(llm, arbor.NewLogger())

	answer, err := generator.Generate(context.Background(), "what are assertions?", nil, newToolManager(t, tool))
	require.NoError(t, err)
	assert.Equal(t, "final answer", answer)

	// The tool ran exactly once and the model was called exactly twice,
	// even though the mock would request a tool on every tool-bearing call.
	assert.Equal(t, 1, tool.executions)
	require.Equal(t, 2, llm.calls)

	// First call carries the tool schema, the follow-up does not.
	require.Len(t, llm.seenTools[0], 1)
	assert.Equal(t, search.ToolName, llm.seenTools[0][0].Name)
	assert.Empty(t, llm.seenTools[1])

	// Follow-up turns carry the assistant tool call and its result.
	followUp := llm.seenTurns[1]
	require.Len(t, followUp, 3)
	assert.Equal(t, "assistant", followUp[1].Role)
	require.Len(t, followUp[1].ToolCalls, 1)
	require.Len(t, followUp[2].ToolResults, 1)
	assert.Equal(t, "toolu_1", followUp[2].ToolResults[0].ToolCallID)
	assert.False(t, followUp[2].ToolResults[0].IsError)
}

func TestGenerateDirectAnswer(t *testing.T) {
	llm := &mockLLM{requestTool: false}
	tool := &countingTool{}
	generator := NewAnswerGenerator(llm, arbor.NewLogger())

	answer, err := generator.Generate(context.Background(), "what is 2+2?", nil, newToolManager(t, tool))
	require.NoError(t, err)
	assert.Equal(t, "final answer", answer)
	assert.Equal(t, 1, llm.calls)
	assert.Zero(t, tool.executions)
}

func TestGenerateToolErrorFedBack(t *testing.T) {
	llm := &mockLLM{requestTool: true}
	tool := &countingTool{failWith: fmt.Errorf("%w: no course matching 'Quantum Biology'", models.ErrCourseNotFound)}
	generator := NewAnswerGenerator(llm, arbor.NewLogger())

	answer, err := generator.Generate(context.Background(), "quantum?", nil, newToolManager(t, tool))
	require.NoError(t, err, "tool failure must not abort the turn")
	assert.Equal(t, "final answer", answer)

	// The error reached the model as a structured tool-error result.
	require.Equal(t, 2, llm.calls)
	results := llm.seenTurns[1][2].ToolResults
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "Quantum Biology")
}

func TestGenerateModelFailureFatal(t *testing.T) {
	tests := []struct {
		name       string
		failOnCall int
	}{
		{name: "first call fails", failOnCall: 1},
		{name: "follow-up call fails", failOnCall: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{requestTool: true, failOnCall: tt.failOnCall}
			generator := NewAnswerGenerator(llm, arbor.NewLogger())

			_, err := generator.Generate(context.Background(), "anything", nil, newToolManager(t, &countingTool{}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrModelCall))
		})
	}
}

func TestGenerateHistoryInSystemPrompt(t *testing.T) {
	history := []models.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	formatted := formatHistory(history)
	assert.Equal(t, "User: earlier question\nAssistant: earlier answer", formatted)
	assert.Empty(t, formatHistory(nil))
}
