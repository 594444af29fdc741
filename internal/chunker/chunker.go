// Package chunker splits book text into paragraph-sized passages.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the default paragraph length a chunk must exceed.
const DefaultMinLength = 500

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Chunk is one retained paragraph.
type Chunk struct {
	// Ordinal is the 0-based position among retained chunks.
	Ordinal int
	Text    string
}

// Config controls paragraph filtering.
type Config struct {
	// MinLength drops paragraphs whose trimmed length in characters does not
	// exceed it. Zero keeps every non-empty paragraph.
	MinLength int
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{MinLength: DefaultMinLength}
}

// Split breaks text on runs of blank lines and returns the trimmed
// paragraphs longer than cfg.MinLength, in text order.
func Split(text string, cfg Config) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []Chunk
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" || utf8.RuneCountInString(p) <= cfg.MinLength {
			continue
		}
		chunks = append(chunks, Chunk{Ordinal: len(chunks), Text: p})
	}
	return chunks
}
