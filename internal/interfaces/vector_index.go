package interfaces

import (
	"context"

	"github.com/ternarybob/studium/internal/models"
)

// VectorIndex stores course metadata and content chunks with their
// embeddings and serves filtered similarity queries over them.
type VectorIndex interface {
	// UpsertCourse adds or replaces a course's catalog entry
	UpsertCourse(ctx context.Context, course *models.Course) error

	// UpsertChunks adds or replaces content chunks for a course
	UpsertChunks(ctx context.Context, chunks []models.CourseChunk) error

	// Query returns up to topK chunks ranked by similarity to the query
	// text, restricted by the filter. Ties are broken by lesson number
	// then chunk index, both ascending.
	Query(ctx context.Context, query string, filter models.SearchFilter, topK int) ([]models.SearchResult, error)

	// ResolveCourseTitle maps a possibly-partial course name to the exact
	// catalog title. Returns models.ErrCourseNotFound when no title
	// matches with sufficient confidence.
	ResolveCourseTitle(ctx context.Context, name string) (string, error)

	// Catalog introspection
	CourseCount() int
	ChunkCount() int
	CourseTitles() []string
	Course(title string) (*models.Course, bool)

	// LessonLink returns the link of a lesson within a course, if known
	LessonLink(courseTitle string, lessonNumber int) string

	// Clear removes all indexed courses and chunks
	Clear(ctx context.Context) error
}
