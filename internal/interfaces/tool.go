package interfaces

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/studium/internal/models"
)

// Tool is one capability the model can invoke during a conversation turn.
type Tool interface {
	// Definition returns the tool's schema as advertised to the model
	Definition() ToolDefinition

	// Execute runs the tool with the raw JSON arguments from the model
	// and returns the text fed back as the tool result
	Execute(ctx context.Context, input json.RawMessage) (string, error)

	// LastSources returns the sources the most recent Execute produced
	LastSources() []models.Source

	// ResetSources clears the recorded sources
	ResetSources()
}
