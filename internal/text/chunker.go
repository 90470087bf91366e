package text

import (
	"fmt"
	"strings"
)

// Split cuts text into overlapping windows of whitespace-delimited tokens.
// Each window holds up to chunkSize tokens joined by single spaces, and the
// window advances by chunkSize-overlap tokens per step. Input that yields no
// chunks (empty or all-whitespace text) falls back to a single chunk holding
// the original text, so ingestion never silently drops a file.
//
// Split is a pure function of its inputs.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		// the step must stay strictly positive or the window never advances
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}

	tokens := strings.Fields(text)
	step := chunkSize - overlap

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := strings.Join(tokens[start:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}

	if len(chunks) == 0 {
		return []string{text}, nil
	}
	return chunks, nil
}
