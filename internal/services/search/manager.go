package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
)

// ToolManager registers tools by name and dispatches model-requested
// executions to them.
type ToolManager struct {
	tools map[string]interfaces.Tool
}

// NewToolManager creates an empty tool manager
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]interfaces.Tool),
	}
}

// Register adds a tool under its definition name
func (m *ToolManager) Register(tool interfaces.Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool definition must have a name")
	}
	if _, exists := m.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	m.tools[name] = tool
	return nil
}

// Definitions returns all registered tool schemas, sorted by name
func (m *ToolManager) Definitions() []interfaces.ToolDefinition {
	definitions := make([]interfaces.ToolDefinition, 0, len(m.tools))
	for _, tool := range m.tools {
		definitions = append(definitions, tool.Definition())
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})
	return definitions
}

// Execute runs the named tool with raw JSON arguments
func (m *ToolManager) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	tool, ok := m.tools[name]
	if !ok {
		return "", fmt.Errorf("tool '%s' not found", name)
	}
	return tool.Execute(ctx, input)
}

// LastSources collects the sources recorded by all tools since the last
// reset
func (m *ToolManager) LastSources() []models.Source {
	var sources []models.Source
	for _, name := range m.names() {
		sources = append(sources, m.tools[name].LastSources()...)
	}
	return sources
}

// ResetSources clears recorded sources across all tools
func (m *ToolManager) ResetSources() {
	for _, tool := range m.tools {
		tool.ResetSources()
	}
}

func (m *ToolManager) names() []string {
	names := make([]string, 0, len(m.tools))
	for name := range m.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
