package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/studium/internal/common"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
)

// ClaudeService implements the LLMService interface using the Anthropic
// Claude API, including native tool use.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a new Claude LLM service instance.
//
// Parameters:
//   - claudeConfig: Claude configuration with API key and model settings
//   - logger: Structured logger for service operations
//
// Returns:
//   - *ClaudeService: Initialized service ready for use
//   - error: nil on success, error with details on failure
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set via ANTHROPIC_API_KEY, STUDIUM_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	rateInterval, err := time.ParseDuration(claudeConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", claudeConfig.RateLimit, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		limiter:   rate.NewLimiter(rate.Every(rateInterval), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", claudeConfig.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - system: System prompt, may be empty
//   - messages: Conversation history in chronological order
//
// Returns:
//   - string: Generated assistant response
//   - error: nil on success, error with details on failure
func (s *ClaudeService) Chat(ctx context.Context, system string, messages []interfaces.Message) (string, error) {
	turns := make([]interfaces.ModelTurn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, interfaces.ModelTurn{Role: msg.Role, Content: msg.Content})
	}

	response, err := s.ChatWithTools(ctx, system, turns, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Text) == "" {
		return "", fmt.Errorf("%w: no response generated", models.ErrModelCall)
	}
	return response.Text, nil
}

// ChatWithTools generates a completion with the given tools advertised to
// the model. The response carries any tool calls the model requested.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - system: System prompt, may be empty
//   - turns: Conversation turns including tool calls and results
//   - tools: Tool definitions the model may invoke, nil for none
//
// Returns:
//   - *interfaces.ModelResponse: Text and requested tool calls
//   - error: nil on success, error with details on failure
func (s *ClaudeService) ChatWithTools(ctx context.Context, system string, turns []interfaces.ModelTurn, tools []interfaces.ToolDefinition) (*interfaces.ModelResponse, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("turns cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter wait: %v", models.ErrModelCall, err)
	}

	params, err := s.buildParams(system, turns, tools)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	s.logger.Debug().
		Int("turn_count", len(turns)).
		Int("tool_count", len(tools)).
		Msg("Starting Claude chat completion")

	resp, err := s.client.Messages.New(timeoutCtx, *params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("turn_count", len(turns)).
			Msg("Claude chat completion failed")
		return nil, fmt.Errorf("%w: %v", models.ErrModelCall, err)
	}

	response := decodeResponse(resp)

	s.logger.Debug().
		Int("response_length", len(response.Text)).
		Int("tool_calls", len(response.ToolCalls)).
		Str("stop_reason", response.StopReason).
		Dur("duration", time.Since(startTime)).
		Msg("Claude chat completion completed successfully")

	return response, nil
}

// buildParams assembles the API request from turns and tool definitions
func (s *ClaudeService) buildParams(system string, turns []interfaces.ModelTurn, tools []interfaces.ToolDefinition) (*anthropic.MessageNewParams, error) {
	claudeMessages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case "system":
			if system == "" {
				system = turn.Content
			}
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if turn.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Content))
			}
			for _, call := range turn.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Input,
					},
				})
			}
			if len(blocks) == 0 {
				return nil, fmt.Errorf("assistant turn has no content")
			}
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(blocks...))
		default: // user
			var blocks []anthropic.ContentBlockParamUnion
			for _, result := range turn.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(result.ToolCallID, result.Content, result.IsError))
			}
			if turn.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Content))
			}
			if len(blocks) == 0 {
				return nil, fmt.Errorf("user turn has no content")
			}
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(blocks...))
		}
	}

	if len(claudeMessages) == 0 {
		return nil, fmt.Errorf("at least one user or assistant turn is required")
	}

	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	if len(tools) > 0 {
		claudeTools := make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, tool := range tools {
			claudeTools = append(claudeTools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        tool.Name,
					Description: anthropic.String(tool.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: tool.Properties,
						Required:   tool.Required,
					},
				},
			})
		}
		params.Tools = claudeTools
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{},
		}
	}

	return params, nil
}

// decodeResponse extracts text and tool calls from the API response
func decodeResponse(resp *anthropic.Message) *interfaces.ModelResponse {
	response := &interfaces.ModelResponse{
		StopReason: string(resp.StopReason),
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			// Re-marshal keeps the raw JSON regardless of the SDK's
			// decoded representation.
			input, err := json.Marshal(block.Input)
			if err != nil {
				input = []byte("{}")
			}
			response.ToolCalls = append(response.ToolCalls, interfaces.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}
	response.Text = text.String()

	return response
}

// GetClient returns the underlying Anthropic client for direct API access.
func (s *ClaudeService) GetClient() *anthropic.Client {
	return s.client
}

// GetConfig returns the Claude configuration.
func (s *ClaudeService) GetConfig() *common.ClaudeConfig {
	return s.config
}
