package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/embeddings"
	"github.com/ternarybob/studium/internal/services/index"
)

func intPtr(n int) *int { return &n }

func newSeededTool(t *testing.T) *CourseSearchTool {
	t.Helper()
	embedder, err := embeddings.NewLocalService(384, arbor.NewLogger())
	require.NoError(t, err)
	idx := index.NewMemoryIndex(embedder, nil, 0.55, arbor.NewLogger())

	ctx := context.Background()
	require.NoError(t, idx.UpsertCourse(ctx, &models.Course{
		Title: "Intro to Testing",
		Link:  "https://example.com/testing",
		Lessons: []models.Lesson{
			{Number: 0, Title: "Setup", Link: "https://example.com/testing/0"},
			{Number: 1, Title: "Assertions", Link: "https://example.com/testing/1"},
		},
	}))
	require.NoError(t, idx.UpsertChunks(ctx, []models.CourseChunk{
		{Content: "Course Intro to Testing Lesson 0 content: install the toolchain first", CourseTitle: "Intro to Testing", LessonNumber: intPtr(0), ChunkIndex: 0},
		{Content: "Course Intro to Testing Lesson 1 content: assertions verify behavior", CourseTitle: "Intro to Testing", LessonNumber: intPtr(1), ChunkIndex: 0},
	}))

	return NewCourseSearchTool(idx, 5, arbor.NewLogger())
}

func TestToolDefinition(t *testing.T) {
	tool := newSeededTool(t)
	def := tool.Definition()

	assert.Equal(t, "search_course_content", def.Name)
	assert.NotEmpty(t, def.Description)
	assert.Equal(t, []string{"query"}, def.Required)
	assert.Contains(t, def.Properties, "query")
	assert.Contains(t, def.Properties, "course_name")
	assert.Contains(t, def.Properties, "lesson_number")
}

func TestExecuteFormatsResults(t *testing.T) {
	tool := newSeededTool(t)

	out, err := tool.Execute(context.Background(),
		json.RawMessage(`{"query": "assertions verify behavior"}`))
	require.NoError(t, err)

	assert.Contains(t, out, "[Intro to Testing - Lesson 1]")
	assert.Contains(t, out, "assertions verify behavior")
}

func TestExecuteSources(t *testing.T) {
	tool := newSeededTool(t)
	ctx := context.Background()

	_, err := tool.Execute(ctx, json.RawMessage(`{"query": "toolchain assertions"}`))
	require.NoError(t, err)

	sources := tool.LastSources()
	require.NotEmpty(t, sources)

	// Deduplicated and carrying lesson links.
	seen := make(map[string]bool)
	for _, s := range sources {
		assert.False(t, seen[s.Title], "duplicate source %s", s.Title)
		seen[s.Title] = true
		assert.NotEmpty(t, s.Link)
	}

	// A later execution replaces, not appends.
	_, err = tool.Execute(ctx, json.RawMessage(`{"query": "install toolchain", "lesson_number": 0}`))
	require.NoError(t, err)
	sources = tool.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Intro to Testing - Lesson 0", sources[0].Title)

	tool.ResetSources()
	assert.Empty(t, tool.LastSources())
}

func TestExecuteFuzzyCourseName(t *testing.T) {
	tool := newSeededTool(t)

	out, err := tool.Execute(context.Background(),
		json.RawMessage(`{"query": "assertions", "course_name": "Intro to Testng"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Intro to Testing")
}

func TestExecuteCourseNotFound(t *testing.T) {
	tool := newSeededTool(t)

	_, err := tool.Execute(context.Background(),
		json.RawMessage(`{"query": "anything", "course_name": "Quantum Biology"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCourseNotFound))
}

func TestExecuteEmptyResults(t *testing.T) {
	tool := newSeededTool(t)

	out, err := tool.Execute(context.Background(),
		json.RawMessage(`{"query": "anything", "course_name": "Intro to Testing", "lesson_number": 9}`))
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in course 'Intro to Testing' in lesson 9.", out)
	assert.Empty(t, tool.LastSources())
}

func TestExecuteInvalidInput(t *testing.T) {
	tool := newSeededTool(t)
	ctx := context.Background()

	_, err := tool.Execute(ctx, json.RawMessage(`{`))
	assert.Error(t, err)

	_, err = tool.Execute(ctx, json.RawMessage(`{"query": "  "}`))
	assert.Error(t, err)
}

func TestToolManager(t *testing.T) {
	tool := newSeededTool(t)
	manager := NewToolManager()

	require.NoError(t, manager.Register(tool))
	assert.Error(t, manager.Register(tool), "duplicate registration must fail")

	defs := manager.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, ToolName, defs[0].Name)

	out, err := manager.Execute(context.Background(), ToolName,
		json.RawMessage(`{"query": "assertions"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.NotEmpty(t, manager.LastSources())

	manager.ResetSources()
	assert.Empty(t, manager.LastSources())

	_, err = manager.Execute(context.Background(), "missing_tool", json.RawMessage(`{}`))
	assert.Error(t, err)
}
