package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/search"
)

// systemPrompt steers the model toward tool-backed, citation-free answers.
// Sources are attached separately by the caller.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with a search tool for course information.

Search Tool Usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- One search per query maximum
- Synthesize search results into accurate, fact-based responses
- If the search yields no results, state this clearly without offering alternatives

Response Protocol:
- General knowledge questions: answer using existing knowledge without searching
- Course-specific questions: search first, then answer
- No meta-commentary: provide direct answers only, without reasoning process, search explanations, or question-type analysis

All responses must be brief, concise and focused. Provide only the direct answer to what was asked.`

// AnswerGenerator runs the bounded tool-use conversation with the model:
// one call carrying the tool schema, at most one round of tool execution,
// and exactly one follow-up call for the final answer. Further tool
// requests in the follow-up are not honored.
type AnswerGenerator struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewAnswerGenerator creates an answer generator over the given LLM service
func NewAnswerGenerator(llm interfaces.LLMService, logger arbor.ILogger) *AnswerGenerator {
	return &AnswerGenerator{
		llm:    llm,
		logger: logger,
	}
}

// Generate answers a query, letting the model use the registered tools at
// most once. Tool failures are surfaced to the model as error results so
// it can respond gracefully; model failures abort the turn.
func (g *AnswerGenerator) Generate(ctx context.Context, query string, history []models.ChatMessage, tools *search.ToolManager) (string, error) {
	system := systemPrompt
	if formatted := formatHistory(history); formatted != "" {
		system += "\n\nPrevious conversation:\n" + formatted
	}

	turns := []interfaces.ModelTurn{
		{Role: "user", Content: query},
	}

	var definitions []interfaces.ToolDefinition
	if tools != nil {
		definitions = tools.Definitions()
	}

	response, err := g.llm.ChatWithTools(ctx, system, turns, definitions)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	if len(response.ToolCalls) == 0 {
		return response.Text, nil
	}

	// Each requested call runs exactly once, then one follow-up model
	// call without tools closes the turn.
	results := make([]interfaces.ToolResult, 0, len(response.ToolCalls))
	for _, call := range response.ToolCalls {
		output, err := tools.Execute(ctx, call.Name, call.Input)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("tool execution aborted: %w", ctx.Err())
			}
			g.logger.Warn().
				Err(err).
				Str("tool", call.Name).
				Msg("Tool execution failed, reporting error to model")
			results = append(results, interfaces.ToolResult{
				ToolCallID: call.ID,
				Content:    err.Error(),
				IsError:    true,
			})
			continue
		}
		results = append(results, interfaces.ToolResult{
			ToolCallID: call.ID,
			Content:    output,
		})
	}

	turns = append(turns,
		interfaces.ModelTurn{Role: "assistant", Content: response.Text, ToolCalls: response.ToolCalls},
		interfaces.ModelTurn{Role: "user", ToolResults: results},
	)

	final, err := g.llm.ChatWithTools(ctx, system, turns, nil)
	if err != nil {
		return "", fmt.Errorf("follow-up answer generation failed: %w", err)
	}
	return final.Text, nil
}

// formatHistory renders prior exchanges for the system prompt
func formatHistory(history []models.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
