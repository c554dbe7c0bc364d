package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ternarybob/studium/internal/models"
)

var blankLineRegex = regexp.MustCompile(`\n\s*\n`)

// Chunker splits lesson text into overlapping, sentence-respecting chunks
// of bounded size. Identical input and configuration always produce the
// same chunk sequence.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given target size and overlap,
// both in characters. Overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be non-negative and smaller than size, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into chunks. Sentences are never split across chunk
// boundaries; a single sentence longer than the chunk size is emitted
// whole as its own chunk.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	spans := c.spans(sentences)

	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunks = append(chunks, strings.Join(sentences[s.start:s.end], " "))
	}
	return chunks
}

// ChunkDocument converts a parsed course document into prefixed, indexed
// chunks ready for embedding. Preamble content before the first lesson
// marker is chunked without a lesson number.
func (c *Chunker) ChunkDocument(doc *Document) []models.CourseChunk {
	var chunks []models.CourseChunk

	if doc.Preamble != "" {
		prefix := fmt.Sprintf("Course %s content: ", doc.Course.Title)
		for i, text := range c.Chunk(doc.Preamble) {
			chunks = append(chunks, models.CourseChunk{
				Content:     prefix + text,
				CourseTitle: doc.Course.Title,
				ChunkIndex:  i,
			})
		}
	}

	for _, lesson := range doc.Lessons {
		if lesson.Content == "" {
			continue
		}
		number := lesson.Number
		prefix := fmt.Sprintf("Course %s Lesson %d content: ", doc.Course.Title, number)
		for i, text := range c.Chunk(lesson.Content) {
			chunks = append(chunks, models.CourseChunk{
				Content:      prefix + text,
				CourseTitle:  doc.Course.Title,
				LessonNumber: &number,
				ChunkIndex:   i,
			})
		}
	}

	return chunks
}

// span covers the half-open sentence range [start, end) of one chunk.
type span struct {
	start int
	end   int
}

// spans accumulates sentences into chunk ranges. Each chunk after the first
// re-includes trailing sentences of the previous chunk whose combined
// length fits the configured overlap, always advancing by at least one
// sentence.
func (c *Chunker) spans(sentences []string) []span {
	var spans []span

	i := 0
	for i < len(sentences) {
		total := 0
		j := i
		for j < len(sentences) {
			length := len(sentences[j])
			if j > i {
				length++ // joining space
			}
			if total+length > c.size && j > i {
				break
			}
			total += length
			j++
		}

		spans = append(spans, span{start: i, end: j})
		if j >= len(sentences) {
			break
		}

		// Back off trailing sentences into the next chunk's overlap.
		next := j
		carried := 0
		for next > i+1 {
			length := len(sentences[next-1])
			if carried+length > c.overlap {
				break
			}
			carried += length + 1
			next--
		}
		i = next
	}

	return spans
}

// splitSentences segments text into sentences. Blank lines always end a
// sentence; within a paragraph, terminal punctuation followed by whitespace
// and a capital letter ends a sentence unless the preceding word looks like
// an abbreviation. Whitespace is normalized to single spaces.
func splitSentences(text string) []string {
	var sentences []string
	for _, paragraph := range blankLineRegex.Split(strings.TrimSpace(text), -1) {
		normalized := strings.Join(strings.Fields(paragraph), " ")
		if normalized == "" {
			continue
		}
		sentences = append(sentences, splitParagraph(normalized)...)
	}
	return sentences
}

func splitParagraph(paragraph string) []string {
	var out []string
	runes := []rune(paragraph)

	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Closing quotes and brackets stay with the sentence.
		j := i + 1
		for j < len(runes) && (runes[j] == '"' || runes[j] == '\'' || runes[j] == ')' || runes[j] == ']') {
			j++
		}
		if j >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k >= len(runes) || !unicode.IsUpper(runes[k]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(runes[start:i]) {
			continue
		}

		out = append(out, strings.TrimSpace(string(runes[start:j])))
		start = k
		i = k - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// endsWithAbbreviation reports whether the word ending the given text looks
// like an abbreviation: it contains an interior period (e.g, U.S) or is a
// capitalized word of at most two letters (Dr, Mr, St).
func endsWithAbbreviation(text []rune) bool {
	end := len(text)
	start := end
	for start > 0 && !unicode.IsSpace(text[start-1]) {
		start--
	}
	word := text[start:end]
	if strings.ContainsRune(string(word), '.') {
		return true
	}
	return len(word) > 0 && len(word) <= 2 && unicode.IsUpper(word[0])
}
