package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/ingest"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/embeddings"
	"github.com/ternarybob/studium/internal/services/index"
	"github.com/ternarybob/studium/internal/services/rag"
	"github.com/ternarybob/studium/internal/services/search"
	"github.com/ternarybob/studium/internal/services/session"
)

// scriptedLLM answers with a fixed tool call on tool-bearing requests and
// a fixed answer otherwise
type scriptedLLM struct {
	fail bool
}

func (s *scriptedLLM) Chat(ctx context.Context, system string, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("not used")
}

func (s *scriptedLLM) ChatWithTools(ctx context.Context, system string, turns []interfaces.ModelTurn, tools []interfaces.ToolDefinition) (*interfaces.ModelResponse, error) {
	if s.fail {
		return nil, fmt.Errorf("%w: scripted failure", models.ErrModelCall)
	}
	if len(tools) > 0 {
		return &interfaces.ModelResponse{
			ToolCalls: []interfaces.ToolCall{
				{ID: "toolu_1", Name: search.ToolName, Input: json.RawMessage(`{"query": "assertions"}`)},
			},
			StopReason: "tool_use",
		}, nil
	}
	return &interfaces.ModelResponse{Text: "the answer", StopReason: "end_turn"}, nil
}

func newTestRAGService(t *testing.T, llm interfaces.LLMService) *rag.Service {
	t.Helper()
	logger := arbor.NewLogger()

	embedder, err := embeddings.NewLocalService(128, logger)
	require.NoError(t, err)
	idx := index.NewMemoryIndex(embedder, nil, 0.55, logger)

	chunker, err := ingest.NewChunker(200, 40)
	require.NoError(t, err)

	tools := search.NewToolManager()
	require.NoError(t, tools.Register(search.NewCourseSearchTool(idx, 5, logger)))

	sessions := session.NewManager(5, 0, logger)
	generator := rag.NewAnswerGenerator(llm, logger)
	service := rag.NewService(chunker, idx, tools, generator, sessions, logger)

	doc := `Course Title: Intro to Testing
Course Link: https://example.com/testing
Course Instructor: Pat Morgan

Lesson 0: Getting Started
Testing verifies program behavior. Assertions compare actual values against expected values.
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testing.txt"), []byte(doc), 0o644))
	_, _, err = service.AddCourseFolder(context.Background(), dir, false)
	require.NoError(t, err)

	return service
}

func TestQueryEndpoint(t *testing.T) {
	handler := NewQueryHandler(newTestRAGService(t, &scriptedLLM{}), arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "what are assertions?"}`))
	rec := httptest.NewRecorder()
	handler.Query(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer    string          `json:"answer"`
		Sources   []models.Source `json:"sources"`
		SessionID string          `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Answer)
	assert.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "Intro to Testing - Lesson 0", resp.Sources[0].Title)
}

func TestQueryEndpointValidation(t *testing.T) {
	handler := NewQueryHandler(newTestRAGService(t, &scriptedLLM{}), arbor.NewLogger())

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{name: "missing query field", method: http.MethodPost, body: `{"session_id": "s1"}`, wantStatus: http.StatusBadRequest},
		{name: "whitespace-only query", method: http.MethodPost, body: `{"query": "   "}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, body: `{not json`, wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, body: "", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.Query(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestQueryEndpointModelFailure(t *testing.T) {
	handler := NewQueryHandler(newTestRAGService(t, &scriptedLLM{fail: true}), arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "anything"}`))
	rec := httptest.NewRecorder()
	handler.Query(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCoursesEndpoint(t *testing.T) {
	handler := NewCourseHandler(newTestRAGService(t, &scriptedLLM{}), arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.CourseStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalCourses)
	assert.Greater(t, stats.TotalChunks, 0)
	assert.Equal(t, []string{"Intro to Testing"}, stats.CourseTitles)
	require.Len(t, stats.Courses, 1)
	assert.Equal(t, 1, stats.Courses[0].LessonCount)
}

func TestHealthAndNotFound(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	req = httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec = httptest.NewRecorder()
	handler.NotFoundHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
