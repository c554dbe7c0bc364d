package models

// SearchFilter narrows a content query to a course and/or lesson.
// CourseTitle must already be resolved to an exact catalog title.
type SearchFilter struct {
	CourseTitle  string `json:"course_title,omitempty"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

// SearchResult is one ranked chunk returned by the vector index.
type SearchResult struct {
	Content      string  `json:"content"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// Source is a citation attached to an answer: the course (and lesson) a
// piece of retrieved content came from, with a link when one is known.
type Source struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}
