// Package chunker splits normalized text into bounded, overlapping
// segments for embedding.
package chunker

import "strings"

// Config defines chunking parameters.
type Config struct {
	// MaxSize is the maximum chunk length in characters.
	MaxSize int

	// Overlap is how many characters before a break the next chunk
	// starts at, to preserve context continuity.
	Overlap int

	// Separators are boundary markers in preference order; the
	// earliest-listed separator found within the window wins.
	Separators []string
}

// DefaultConfig returns the deployment defaults: 800-character chunks
// with a 200-character overlap, breaking at paragraph, line, sentence,
// then word boundaries.
func DefaultConfig() Config {
	return Config{
		MaxSize:    800,
		Overlap:    200,
		Separators: []string{"\n\n", "\n", ". ", " "},
	}
}

// Split divides text into chunks of at most cfg.MaxSize characters,
// breaking at the best available separator and overlapping adjacent
// chunks by cfg.Overlap characters.
//
// Every character of the input appears in at least one chunk. The only
// chunks exceeding MaxSize are single unbreakable tokens longer than
// MaxSize, which become their own oversized chunk. Chunks that are
// empty after trimming are dropped.
func Split(text string, cfg Config) []string {
	if cfg.MaxSize <= 0 {
		cfg = DefaultConfig()
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + cfg.MaxSize
		if end >= len(text) {
			appendTrimmed(&chunks, text[start:])
			break
		}

		cut := breakPoint(text, start, end, cfg.Separators)
		appendTrimmed(&chunks, text[start:cut])

		if cut >= len(text) {
			break
		}

		next := cut - cfg.Overlap
		// Overlap must never move the window backwards.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// breakPoint finds where to cut the window [start, end). Separators are
// tried in preference order; the last occurrence of the winning
// separator inside the window becomes the cut, placed after the
// separator so no text is lost. When no separator occurs in the window
// the current token is unbreakable: the cut extends to the first
// separator after the window (or end of text), producing one oversized
// chunk.
func breakPoint(text string, start, end int, separators []string) int {
	window := text[start:end]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}

	// Unbreakable token: scan forward for the nearest separator.
	rest := text[end:]
	next := len(text)
	for _, sep := range separators {
		if idx := strings.Index(rest, sep); idx >= 0 && end+idx+len(sep) < next {
			next = end + idx + len(sep)
		}
	}
	return next
}

func appendTrimmed(chunks *[]string, s string) {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		*chunks = append(*chunks, trimmed)
	}
}
