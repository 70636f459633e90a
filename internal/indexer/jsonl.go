package indexer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kensaku/internal/models"
)

const maxLineSize = 4 << 20

// ReadSnippetsJSONL reads one models.SnippetInput JSON object per line. Blank
// lines are ignored.
func ReadSnippetsJSONL(r io.Reader) ([]models.SnippetInput, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var (
		inputs []models.SnippetInput
		line   int
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var in models.SnippetInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inputs = append(inputs, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snippets: %w", err)
	}
	return inputs, nil
}
