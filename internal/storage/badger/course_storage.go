package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/studium/internal/models"
)

// CourseRecord persists a course's catalog entry with its title embedding
type CourseRecord struct {
	Title          string `badgerhold:"key"`
	Course         models.Course
	TitleEmbedding []float32
	CreatedAt      time.Time
}

// ChunkRecord persists one content chunk with its embedding
type ChunkRecord struct {
	ID          string `badgerhold:"key"`
	CourseTitle string `badgerhold:"index"`
	Chunk       models.CourseChunk
	Embedding   []float32
}

// CourseStorage reads and writes course and chunk records in Badger. The
// in-memory vector index loads from here at startup and writes through on
// every upsert, so embeddings survive restarts.
type CourseStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCourseStorage creates a new CourseStorage instance
func NewCourseStorage(db *BadgerDB, logger arbor.ILogger) *CourseStorage {
	return &CourseStorage{
		db:     db,
		logger: logger,
	}
}

// SaveCourse upserts a course catalog record
func (s *CourseStorage) SaveCourse(record *CourseRecord) error {
	if record.Title == "" {
		return fmt.Errorf("course title is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(record.Title, record); err != nil {
		return fmt.Errorf("failed to save course %s: %w", record.Title, err)
	}
	return nil
}

// SaveChunks upserts a batch of chunk records
func (s *CourseStorage) SaveChunks(records []ChunkRecord) error {
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		if err := s.db.Store().Upsert(records[i].ID, &records[i]); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", records[i].ID, err)
		}
	}
	return nil
}

// LoadCourses returns all persisted course records
func (s *CourseStorage) LoadCourses() ([]CourseRecord, error) {
	var records []CourseRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}
	return records, nil
}

// LoadChunks returns all persisted chunk records
func (s *CourseStorage) LoadChunks() ([]ChunkRecord, error) {
	var records []ChunkRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	return records, nil
}

// HasCourse reports whether a course with the given title is persisted
func (s *CourseStorage) HasCourse(title string) (bool, error) {
	var record CourseRecord
	err := s.db.Store().Get(title, &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up course %s: %w", title, err)
	}
	return true, nil
}

// DeleteAll removes every course and chunk record
func (s *CourseStorage) DeleteAll() error {
	if err := s.db.Store().DeleteMatching(&CourseRecord{}, nil); err != nil {
		return fmt.Errorf("failed to delete courses: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&ChunkRecord{}, nil); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	s.logger.Debug().Msg("Cleared persisted course data")
	return nil
}
