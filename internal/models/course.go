package models

// Lesson is a single lesson within a course document.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course is the parsed metadata of one course document.
type Course struct {
	Title      string   `json:"title" badgerhold:"key"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// LessonCount returns the number of lessons in the course.
func (c *Course) LessonCount() int {
	return len(c.Lessons)
}

// Lesson returns the lesson with the given number, or nil.
func (c *Course) Lesson(number int) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].Number == number {
			return &c.Lessons[i]
		}
	}
	return nil
}

// CourseChunk is one indexable slice of course content. LessonNumber is nil
// for content that appears before the first lesson marker.
type CourseChunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// CourseStats summarizes the indexed corpus for the analytics endpoint.
type CourseStats struct {
	TotalCourses int             `json:"total_courses"`
	TotalChunks  int             `json:"total_chunks"`
	CourseTitles []string        `json:"course_titles"`
	Courses      []CourseSummary `json:"courses"`
}

// CourseSummary is the per-course slice of CourseStats.
type CourseSummary struct {
	Title       string `json:"title"`
	Instructor  string `json:"instructor,omitempty"`
	Link        string `json:"link,omitempty"`
	LessonCount int    `json:"lesson_count"`
}
