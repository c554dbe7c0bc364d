package ingest

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/studium/internal/models"
)

// Course documents are plain text with three header lines followed by
// lesson blocks:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<content until the next lesson marker or EOF>
//
// Header matching is case-insensitive and values are trimmed. All three
// header lines are mandatory, though link and instructor values may be
// empty. Lesson numbers must be non-negative and strictly increasing, gaps
// allowed.

var (
	lessonMarkerRegex = regexp.MustCompile(`(?i)^lesson\s+(\d+):\s*(.*)$`)
	lessonLinkRegex   = regexp.MustCompile(`(?i)^lesson\s+link:\s*(.*)$`)
)

// LessonText pairs a lesson number with its raw content.
type LessonText struct {
	Number  int
	Content string
}

// Document is the parsed form of one course file: course metadata, any
// preamble content that appears before the first lesson marker, and the raw
// text of each lesson in order.
type Document struct {
	Course   models.Course
	Preamble string
	Lessons  []LessonText
}

// ParseFile reads and parses a course document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read course document %s: %w", path, err)
	}

	doc, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses raw course document text.
func Parse(text string) (*Document, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	doc := &Document{}

	// Headers and preamble run until the first lesson marker.
	bodyStart := len(lines)
	var preamble []string
	sawLink, sawInstructor := false, false
	for i, line := range lines {
		if lessonMarkerRegex.MatchString(strings.TrimSpace(line)) {
			bodyStart = i
			break
		}
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "course title:"):
			doc.Course.Title = strings.TrimSpace(trimmed[len("course title:"):])
		case strings.HasPrefix(lower, "course link:"):
			doc.Course.Link = strings.TrimSpace(trimmed[len("course link:"):])
			sawLink = true
		case strings.HasPrefix(lower, "course instructor:"):
			doc.Course.Instructor = strings.TrimSpace(trimmed[len("course instructor:"):])
			sawInstructor = true
		default:
			preamble = append(preamble, line)
		}
	}

	if doc.Course.Title == "" {
		return nil, fmt.Errorf("%w: missing Course Title header", models.ErrMalformedDocument)
	}
	if !sawLink {
		return nil, fmt.Errorf("%w: missing Course Link header", models.ErrMalformedDocument)
	}
	if !sawInstructor {
		return nil, fmt.Errorf("%w: missing Course Instructor header", models.ErrMalformedDocument)
	}
	if bodyStart == len(lines) {
		return nil, fmt.Errorf("%w: no lesson markers found", models.ErrMalformedDocument)
	}

	doc.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))

	// Lesson blocks.
	lastNumber := -1
	i := bodyStart
	for i < len(lines) {
		m := lessonMarkerRegex.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			i++
			continue
		}

		number, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid lesson number %q", models.ErrMalformedDocument, m[1])
		}
		if number <= lastNumber {
			return nil, fmt.Errorf("%w: lesson %d follows lesson %d", models.ErrMalformedDocument, number, lastNumber)
		}
		lastNumber = number

		lesson := models.Lesson{
			Number: number,
			Title:  strings.TrimSpace(m[2]),
		}
		i++

		// An optional link line immediately follows the marker.
		if i < len(lines) {
			if lm := lessonLinkRegex.FindStringSubmatch(strings.TrimSpace(lines[i])); lm != nil {
				lesson.Link = strings.TrimSpace(lm[1])
				i++
			}
		}

		var content []string
		for i < len(lines) && !lessonMarkerRegex.MatchString(strings.TrimSpace(lines[i])) {
			content = append(content, lines[i])
			i++
		}

		doc.Course.Lessons = append(doc.Course.Lessons, lesson)
		doc.Lessons = append(doc.Lessons, LessonText{
			Number:  number,
			Content: strings.TrimSpace(strings.Join(content, "\n")),
		})
	}

	return doc, nil
}
