package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
)

// ToolName is the name the course search tool is registered under
const ToolName = "search_course_content"

// CourseSearchTool lets the model search indexed course content with
// optional course and lesson filters. Each execution replaces the
// recorded sources, so the orchestrator cites only the results that fed
// the current answer.
type CourseSearchTool struct {
	index      interfaces.VectorIndex
	maxResults int
	logger     arbor.ILogger

	mu          sync.Mutex
	lastSources []models.Source
}

// NewCourseSearchTool creates the course content search tool
func NewCourseSearchTool(index interfaces.VectorIndex, maxResults int, logger arbor.ILogger) *CourseSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &CourseSearchTool{
		index:      index,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Definition returns the tool schema advertised to the model
func (t *CourseSearchTool) Definition() interfaces.ToolDefinition {
	return interfaces.ToolDefinition{
		Name:        ToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Properties: map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "What to search for in course content",
			},
			"course_name": map[string]interface{}{
				"type":        "string",
				"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": map[string]interface{}{
				"type":        "integer",
				"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

type searchInput struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name,omitempty"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

// Execute runs a search with the model-supplied arguments and formats the
// results for the follow-up model call.
func (t *CourseSearchTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args searchInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "", fmt.Errorf("search query is required")
	}

	filter := models.SearchFilter{LessonNumber: args.LessonNumber}
	if args.CourseName != "" {
		resolved, err := t.index.ResolveCourseTitle(ctx, args.CourseName)
		if err != nil {
			if errors.Is(err, models.ErrCourseNotFound) {
				return "", err
			}
			return "", fmt.Errorf("course name resolution failed: %w", err)
		}
		filter.CourseTitle = resolved
	}

	results, err := t.index.Query(ctx, args.Query, filter, t.maxResults)
	if err != nil {
		return "", fmt.Errorf("content search failed: %w", err)
	}

	t.logger.Debug().
		Str("query", args.Query).
		Str("course", filter.CourseTitle).
		Int("results", len(results)).
		Msg("Executed course content search")

	if len(results) == 0 {
		t.mu.Lock()
		t.lastSources = nil
		t.mu.Unlock()
		return t.emptyMessage(filter), nil
	}
	return t.formatResults(results), nil
}

// emptyMessage names the filters that produced no results
func (t *CourseSearchTool) emptyMessage(filter models.SearchFilter) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if filter.CourseTitle != "" {
		fmt.Fprintf(&b, " in course '%s'", filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *filter.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

// formatResults renders results with [Course - Lesson N] headers and
// records the deduplicated sources for citation.
func (t *CourseSearchTool) formatResults(results []models.SearchResult) string {
	var blocks []string
	var sources []models.Source
	seen := make(map[string]bool)

	for _, result := range results {
		header := result.CourseTitle
		link := ""
		if result.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", result.CourseTitle, *result.LessonNumber)
			link = t.index.LessonLink(result.CourseTitle, *result.LessonNumber)
		}
		if link == "" {
			if course, ok := t.index.Course(result.CourseTitle); ok {
				link = course.Link
			}
		}

		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, result.Content))

		if !seen[header] {
			seen[header] = true
			sources = append(sources, models.Source{Title: header, Link: link})
		}
	}

	t.mu.Lock()
	t.lastSources = sources
	t.mu.Unlock()

	return strings.Join(blocks, "\n\n")
}

// LastSources returns the sources the most recent Execute produced
func (t *CourseSearchTool) LastSources() []models.Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Source(nil), t.lastSources...)
}

// ResetSources clears the recorded sources
func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = nil
}
