package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/studium/internal/models"
)

const sampleDocument = `Course Title: Intro to Testing
Course Link: https://example.com/testing
Course Instructor: Ada Lovelace

Lesson 0: Getting Started
Lesson Link: https://example.com/testing/lesson/0
Welcome to the course. This lesson covers setup.

Lesson 1: Writing Assertions
Assertions are the heart of every test.

Lesson 3: Table-Driven Tests
Lesson Link: https://example.com/testing/lesson/3
Tables keep cases readable.
`

func TestParse(t *testing.T) {
	doc, err := Parse(sampleDocument)
	require.NoError(t, err)

	assert.Equal(t, "Intro to Testing", doc.Course.Title)
	assert.Equal(t, "https://example.com/testing", doc.Course.Link)
	assert.Equal(t, "Ada Lovelace", doc.Course.Instructor)

	require.Len(t, doc.Course.Lessons, 3)
	assert.Equal(t, models.Lesson{Number: 0, Title: "Getting Started", Link: "https://example.com/testing/lesson/0"}, doc.Course.Lessons[0])
	assert.Equal(t, models.Lesson{Number: 1, Title: "Writing Assertions"}, doc.Course.Lessons[1])
	assert.Equal(t, models.Lesson{Number: 3, Title: "Table-Driven Tests", Link: "https://example.com/testing/lesson/3"}, doc.Course.Lessons[2])

	require.Len(t, doc.Lessons, 3)
	assert.Equal(t, "Welcome to the course. This lesson covers setup.", doc.Lessons[0].Content)
	assert.Equal(t, "Assertions are the heart of every test.", doc.Lessons[1].Content)
	assert.Equal(t, "Tables keep cases readable.", doc.Lessons[2].Content)
}

func TestParseLessonNumbers(t *testing.T) {
	tests := []struct {
		name      string
		lessons   string
		malformed bool
	}{
		{
			name:    "gaps allowed",
			lessons: "Lesson 0: A\ntext\nLesson 1: B\ntext\nLesson 3: C\ntext\n",
		},
		{
			name:      "decreasing numbers",
			lessons:   "Lesson 0: A\ntext\nLesson 2: B\ntext\nLesson 1: C\ntext\n",
			malformed: true,
		},
		{
			name:      "repeated numbers",
			lessons:   "Lesson 1: A\ntext\nLesson 1: B\ntext\n",
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "Course Title: Numbers\nCourse Link: https://example.com\nCourse Instructor: Pat\n\n" + tt.lessons
			_, err := Parse(text)
			if tt.malformed {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrMalformedDocument))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "missing title header",
			text: "Course Link: https://example.com\nCourse Instructor: Pat\n\nLesson 0: A\ntext\n",
		},
		{
			name: "missing link header",
			text: "Course Title: A\nCourse Instructor: Pat\n\nLesson 0: A\ntext\n",
		},
		{
			name: "missing instructor header",
			text: "Course Title: A\nCourse Link: https://example.com\n\nLesson 0: A\ntext\n",
		},
		{
			name: "no lesson markers",
			text: "Course Title: Empty\nCourse Link: https://example.com\nCourse Instructor: Nobody\n\nJust some text.\n",
		},
		{
			name: "empty document",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMalformedDocument))
		})
	}
}

func TestParseCaseInsensitiveHeaders(t *testing.T) {
	text := "COURSE TITLE: Shouting\ncourse link: https://example.com\nCourse instructor: Quiet\n\nLESSON 0: intro\ncontent here\n"

	doc, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Shouting", doc.Course.Title)
	assert.Equal(t, "https://example.com", doc.Course.Link)
	assert.Equal(t, "Quiet", doc.Course.Instructor)
	require.Len(t, doc.Course.Lessons, 1)
	assert.Equal(t, "intro", doc.Course.Lessons[0].Title)
}

func TestParseEmptyHeaderValues(t *testing.T) {
	// The header lines are mandatory but their values may be empty.
	text := "Course Title: Minimal\nCourse Link:\nCourse Instructor:\n\nLesson 0: Only\nbody\n"

	doc, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Minimal", doc.Course.Title)
	assert.Empty(t, doc.Course.Link)
	assert.Empty(t, doc.Course.Instructor)
}

func TestParsePreamble(t *testing.T) {
	text := "Course Title: With Preamble\nCourse Link: https://example.com\nCourse Instructor: Pat\n\nThis course has an overview paragraph.\n\nLesson 0: Start\nlesson body\n"

	doc, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "This course has an overview paragraph.", doc.Preamble)
	require.Len(t, doc.Lessons, 1)
	assert.Equal(t, "lesson body", doc.Lessons[0].Content)
}
