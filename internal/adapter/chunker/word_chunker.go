package chunker

import (
	"fmt"
	"strings"

	"kwsearch/internal/port"
)

const DefaultChunkSize = 200

// WordChunker splits text into consecutive windows of size words. Words are
// separated by single spaces after trimming, so runs of spaces produce empty
// words that still count toward the window.
type WordChunker struct {
	size    int
	overlap int
}

var _ port.Chunker = (*WordChunker)(nil)

func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

// Chunk returns nil for blank text. The last chunk may be shorter.
func (c *WordChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	words := strings.Split(text, " ")

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
