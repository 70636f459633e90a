package indexer

import (
	"strings"
)

// Chunk is a line window of a file.
type Chunk struct {
	Text      string
	StartLine uint64
	EndLine   uint64
	StartByte uint64
	EndByte   uint64
}

// Chunker splits source text into overlapping line windows.
type Chunker struct {
	chunkLines   int
	chunkOverlap int
}

// NewChunker creates a chunker with the given window size and overlap (in lines).
func NewChunker(chunkLines, chunkOverlap int) *Chunker {
	if chunkLines <= 0 {
		chunkLines = 30
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkLines {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkLines:   chunkLines,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into windows. Lines are 1-based and inclusive; byte offsets
// are half-open. Windows with only whitespace are dropped.
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	offsets := make([]int, len(lines)+1)
	for i, l := range lines {
		offsets[i+1] = offsets[i] + len(l)
	}

	var chunks []Chunk
	step := c.chunkLines - c.chunkOverlap
	for i := 0; i < len(lines); i += step {
		end := min(i+c.chunkLines, len(lines))
		body := text[offsets[i]:offsets[end]]
		if strings.TrimSpace(body) != "" {
			chunks = append(chunks, Chunk{
				Text:      body,
				StartLine: uint64(i + 1),
				EndLine:   uint64(end),
				StartByte: uint64(offsets[i]),
				EndByte:   uint64(offsets[end]),
			})
		}
		if end >= len(lines) {
			break
		}
	}
	return chunks
}
