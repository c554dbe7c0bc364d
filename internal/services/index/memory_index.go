package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/common"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/storage/badger"
)

// MemoryIndex is a brute-force cosine similarity index over course catalog
// entries and content chunks. Vectors are held in memory; every upsert
// writes through to Badger so the index can be reloaded on restart without
// re-embedding. Embeddings from the configured provider are unit length,
// so similarity is a dot product.
type MemoryIndex struct {
	mu                 sync.RWMutex
	embedder           interfaces.EmbeddingService
	storage            *badger.CourseStorage
	minTitleSimilarity float64
	logger             arbor.ILogger

	courses map[string]*courseEntry
	chunks  []chunkEntry
}

type courseEntry struct {
	course   models.Course
	titleVec []float32
}

type chunkEntry struct {
	chunk models.CourseChunk
	vec   []float32
}

// NewMemoryIndex creates a memory index. Storage may be nil for a purely
// in-memory index (tests).
func NewMemoryIndex(embedder interfaces.EmbeddingService, storage *badger.CourseStorage, minTitleSimilarity float64, logger arbor.ILogger) *MemoryIndex {
	return &MemoryIndex{
		embedder:           embedder,
		storage:            storage,
		minTitleSimilarity: minTitleSimilarity,
		logger:             logger,
		courses:            make(map[string]*courseEntry),
	}
}

// Load populates the index from persisted records
func (m *MemoryIndex) Load(ctx context.Context) error {
	if m.storage == nil {
		return nil
	}

	courseRecords, err := m.storage.LoadCourses()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	chunkRecords, err := m.storage.LoadChunks()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}

	// Persisted vectors from a different embedding provider would produce
	// meaningless similarities, so a dimension mismatch is a hard error.
	want := m.embedder.Dimension()
	for _, record := range courseRecords {
		if len(record.TitleEmbedding) != want {
			return dimensionMismatch(len(record.TitleEmbedding), want)
		}
	}
	for _, record := range chunkRecords {
		if len(record.Embedding) != want {
			return dimensionMismatch(len(record.Embedding), want)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range courseRecords {
		m.courses[record.Title] = &courseEntry{
			course:   record.Course,
			titleVec: record.TitleEmbedding,
		}
	}
	for _, record := range chunkRecords {
		m.chunks = append(m.chunks, chunkEntry{
			chunk: record.Chunk,
			vec:   record.Embedding,
		})
	}

	m.logger.Info().
		Int("courses", len(m.courses)).
		Int("chunks", len(m.chunks)).
		Msg("Loaded vector index from storage")
	return nil
}

// UpsertCourse adds or replaces a course's catalog entry
func (m *MemoryIndex) UpsertCourse(ctx context.Context, course *models.Course) error {
	titleVec, err := m.embedder.Embed(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title: %w", err)
	}

	if m.storage != nil {
		err := m.storage.SaveCourse(&badger.CourseRecord{
			Title:          course.Title,
			Course:         *course,
			TitleEmbedding: titleVec,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.Title] = &courseEntry{
		course:   *course,
		titleVec: titleVec,
	}
	return nil
}

// UpsertChunks embeds and indexes a batch of content chunks
func (m *MemoryIndex) UpsertChunks(ctx context.Context, chunks []models.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	if m.storage != nil {
		records := make([]badger.ChunkRecord, len(chunks))
		for i, chunk := range chunks {
			records[i] = badger.ChunkRecord{
				ID:          common.NewChunkID(),
				CourseTitle: chunk.CourseTitle,
				Chunk:       chunk,
				Embedding:   vectors[i],
			}
		}
		if err := m.storage.SaveChunks(records); err != nil {
			return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, chunk := range chunks {
		m.chunks = append(m.chunks, chunkEntry{
			chunk: chunk,
			vec:   vectors[i],
		})
	}
	return nil
}

// Query returns up to topK chunks ranked by similarity to the query text.
// Ordering is deterministic: score descending, then lesson number and
// chunk index ascending.
func (m *MemoryIndex) Query(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchResult, error) {
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []models.SearchResult
	for _, entry := range m.chunks {
		if filter.CourseTitle != "" && entry.chunk.CourseTitle != filter.CourseTitle {
			continue
		}
		if filter.LessonNumber != nil {
			if entry.chunk.LessonNumber == nil || *entry.chunk.LessonNumber != *filter.LessonNumber {
				continue
			}
		}
		results = append(results, models.SearchResult{
			Content:      entry.chunk.Content,
			CourseTitle:  entry.chunk.CourseTitle,
			LessonNumber: entry.chunk.LessonNumber,
			ChunkIndex:   entry.chunk.ChunkIndex,
			Score:        dot(queryVec, entry.vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		li, lj := lessonSortKey(results[i].LessonNumber), lessonSortKey(results[j].LessonNumber)
		if li != lj {
			return li < lj
		}
		if results[i].ChunkIndex != results[j].ChunkIndex {
			return results[i].ChunkIndex < results[j].ChunkIndex
		}
		return results[i].CourseTitle < results[j].CourseTitle
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ResolveCourseTitle maps a possibly-partial course name to the exact
// catalog title. An exact match wins; otherwise the name is embedded and
// the best-ranked title is accepted only above the confidence floor.
func (m *MemoryIndex) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	if _, ok := m.courses[name]; ok {
		m.mu.RUnlock()
		return name, nil
	}
	for title := range m.courses {
		if strings.EqualFold(title, name) {
			m.mu.RUnlock()
			return title, nil
		}
	}
	m.mu.RUnlock()

	nameVec, err := m.embedder.Embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to embed course name: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	bestTitle := ""
	bestScore := -1.0
	for title, entry := range m.courses {
		score := dot(nameVec, entry.titleVec)
		if score > bestScore || (score == bestScore && title < bestTitle) {
			bestTitle = title
			bestScore = score
		}
	}

	if bestTitle == "" || bestScore < m.minTitleSimilarity {
		return "", fmt.Errorf("%w: no course matching '%s'", models.ErrCourseNotFound, name)
	}

	m.logger.Debug().
		Str("name", name).
		Str("resolved", bestTitle).
		Float64("score", bestScore).
		Msg("Resolved fuzzy course name")
	return bestTitle, nil
}

// CourseCount returns the number of indexed courses
func (m *MemoryIndex) CourseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses)
}

// ChunkCount returns the number of indexed chunks
func (m *MemoryIndex) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// CourseTitles returns all indexed course titles, sorted
func (m *MemoryIndex) CourseTitles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	titles := make([]string, 0, len(m.courses))
	for title := range m.courses {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// Course returns the catalog entry for an exact title
func (m *MemoryIndex) Course(title string) (*models.Course, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.courses[title]
	if !ok {
		return nil, false
	}
	course := entry.course
	return &course, true
}

// LessonLink returns the link of a lesson within a course, if known
func (m *MemoryIndex) LessonLink(courseTitle string, lessonNumber int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.courses[courseTitle]
	if !ok {
		return ""
	}
	if lesson := entry.course.Lesson(lessonNumber); lesson != nil {
		return lesson.Link
	}
	return ""
}

// Clear removes all indexed courses and chunks
func (m *MemoryIndex) Clear(ctx context.Context) error {
	if m.storage != nil {
		if err := m.storage.DeleteAll(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses = make(map[string]*courseEntry)
	m.chunks = nil
	return nil
}

func dimensionMismatch(stored, want int) error {
	return fmt.Errorf("%w: stored embedding dimension %d does not match provider dimension %d; clear the index or restore the original embedding provider",
		models.ErrIndexUnavailable, stored, want)
}

func lessonSortKey(number *int) int {
	if number == nil {
		return -1
	}
	return *number
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
