// Package chunk splits extracted document text into overlapping fixed-size
// windows. The windowing is position-deterministic: chunk i always starts at
// rune offset i*(size-overlap), so the original text can be reconstructed
// exactly by stripping the overlap from every chunk after the first.
package chunk

import (
	"errors"
	"strings"
)

// ErrInvalidConfig is returned when the chunker is constructed with an
// overlap that is not strictly smaller than the chunk size.
var ErrInvalidConfig = errors.New("chunk overlap must be smaller than chunk size")

// Chunk is a single window of document text.
type Chunk struct {
	// Ordinal is the zero-based position of the chunk within the document.
	Ordinal int

	// Text is the chunk payload.
	Text string

	// Start and End are byte offsets into the source text.
	Start int
	End   int
}

// Chunker produces overlapping windows over rune boundaries.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. size and overlap are rune counts;
// overlap must satisfy 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidConfig
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Split windows the text. Empty input yields an empty slice, not an error.
// The final chunk may be shorter than the configured size.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	runes := []rune(text)
	step := c.size - c.overlap

	// Byte offset of every rune, plus the terminating offset, so chunks can
	// report positions into the original string.
	offsets := make([]int, len(runes)+1)
	b := 0
	for i, r := range runes {
		offsets[i] = b
		b += len(string(r))
	}
	offsets[len(runes)] = len(text)

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Text:    string(runes[start:end]),
			Start:   offsets[start],
			End:     offsets[end],
		})

		// The window reached the end of the text; a further window would be
		// fully contained in this one.
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Reassemble inverts Split: it joins the ordered chunks with the overlap
// removed, reproducing the original text exactly.
func Reassemble(chunks []Chunk, overlap int) string {
	var sb strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			sb.WriteString(ch.Text)
			continue
		}

		runes := []rune(ch.Text)
		if len(runes) <= overlap {
			continue
		}
		sb.WriteString(string(runes[overlap:]))
	}

	return sb.String()
}
