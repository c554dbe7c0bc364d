package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/ingest"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/search"
	"github.com/ternarybob/studium/internal/services/session"
)

// QueryResponse is the complete outcome of one query turn
type QueryResponse struct {
	Answer    string
	Sources   []models.Source
	SessionID string
}

// Service is the retrieval-augmented generation facade: document
// ingestion, session-scoped query answering, and corpus analytics.
type Service struct {
	chunker   *ingest.Chunker
	index     interfaces.VectorIndex
	tools     *search.ToolManager
	generator *AnswerGenerator
	sessions  *session.Manager
	logger    arbor.ILogger
}

// NewService wires the RAG pipeline together
func NewService(chunker *ingest.Chunker, index interfaces.VectorIndex, tools *search.ToolManager, generator *AnswerGenerator, sessions *session.Manager, logger arbor.ILogger) *Service {
	return &Service{
		chunker:   chunker,
		index:     index,
		tools:     tools,
		generator: generator,
		sessions:  sessions,
		logger:    logger,
	}
}

// AddCourseDocument parses, chunks, and indexes one course document.
// Returns the parsed course and the number of chunks indexed.
func (s *Service) AddCourseDocument(ctx context.Context, path string) (*models.Course, int, error) {
	doc, err := ingest.ParseFile(path)
	if err != nil {
		return nil, 0, err
	}

	chunks := s.chunker.ChunkDocument(doc)

	if err := s.index.UpsertCourse(ctx, &doc.Course); err != nil {
		return nil, 0, fmt.Errorf("failed to index course %s: %w", doc.Course.Title, err)
	}
	if err := s.index.UpsertChunks(ctx, chunks); err != nil {
		return nil, 0, fmt.Errorf("failed to index chunks for %s: %w", doc.Course.Title, err)
	}

	s.logger.Info().
		Str("course", doc.Course.Title).
		Int("lessons", doc.Course.LessonCount()).
		Int("chunks", len(chunks)).
		Msg("Indexed course document")

	return &doc.Course, len(chunks), nil
}

// AddCourseFolder ingests every .txt file in a directory. A malformed or
// unreadable document is skipped with a warning; the rest of the folder
// still loads. Courses already present in the index are skipped unless
// clearExisting drops the index first. Returns total courses and chunks
// added.
func (s *Service) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		s.logger.Info().Msg("Clearing existing course data")
		if err := s.index.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("failed to clear index: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read course folder %s: %w", dir, err)
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		doc, err := ingest.ParseFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping course document")
			continue
		}
		if _, exists := s.index.Course(doc.Course.Title); exists {
			s.logger.Debug().Str("course", doc.Course.Title).Msg("Course already indexed, skipping")
			continue
		}

		_, chunks, err := s.AddCourseDocument(ctx, path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to index course document")
			continue
		}
		coursesAdded++
		chunksAdded += chunks
	}

	s.logger.Info().
		Str("dir", dir).
		Int("courses", coursesAdded).
		Int("chunks", chunksAdded).
		Msg("Course folder ingestion complete")

	return coursesAdded, chunksAdded, nil
}

// Query answers one user question within a session. Turns on the same
// session are serialized; distinct sessions run concurrently. History is
// committed only after a fully successful turn.
func (s *Service) Query(ctx context.Context, text, sessionID string) (*QueryResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	if sessionID == "" {
		sessionID = s.sessions.Create()
	}

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	history := s.sessions.History(sessionID)

	s.tools.ResetSources()
	answer, err := s.generator.Generate(ctx, text, history, s.tools)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		// A cancelled turn commits nothing.
		return nil, fmt.Errorf("query aborted: %w", ctx.Err())
	}

	sources := s.tools.LastSources()
	s.tools.ResetSources()

	if err := s.sessions.AppendExchange(sessionID, text, answer); err != nil {
		return nil, fmt.Errorf("failed to record exchange: %w", err)
	}

	return &QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// Analytics summarizes the indexed corpus
func (s *Service) Analytics() models.CourseStats {
	titles := s.index.CourseTitles()
	stats := models.CourseStats{
		TotalCourses: s.index.CourseCount(),
		TotalChunks:  s.index.ChunkCount(),
		CourseTitles: titles,
	}
	for _, title := range titles {
		course, ok := s.index.Course(title)
		if !ok {
			continue
		}
		stats.Courses = append(stats.Courses, models.CourseSummary{
			Title:       course.Title,
			Instructor:  course.Instructor,
			Link:        course.Link,
			LessonCount: course.LessonCount(),
		})
	}
	return stats
}
