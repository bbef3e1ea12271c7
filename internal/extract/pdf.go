// Package extract reads PDF documents and produces normalized plain text.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrExtract marks a document whose file is missing or whose
	// contents the PDF parser cannot decode.
	ErrExtract = errors.New("extraction failed")

	// ErrNoText marks a document that decoded but yielded no text
	// after normalization. Fatal for that document, not retried.
	ErrNoText = errors.New("no text extracted")
)

// Text extracts the plain text of a PDF file and normalizes it.
// Returns ErrExtract for unreadable files and ErrNoText when the
// normalized output is empty.
func Text(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrExtract, path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", ErrExtract, path, err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrExtract, path, err)
	}

	var builder strings.Builder
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single bad page does not fail the document.
			slog.Warn("failed to extract page text", "file", path, "page", i, "error", err)
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n")
	}

	normalized := Normalize(builder.String())
	if normalized == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return normalized, nil
}

// Normalize cleans extracted text: runs of spaces and tabs collapse to
// a single space, runs of blank lines collapse to one, characters
// outside the basic printable ASCII range are dropped, and the result
// is trimmed.
func Normalize(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	newlines := 0
	lastSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			newlines++
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\r':
			lastSpace = true
		case r >= 0x20 && r <= 0x7e:
			if newlines > 0 {
				if builder.Len() > 0 {
					builder.WriteString(newlineRun(newlines))
				}
				newlines = 0
			} else if lastSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			lastSpace = false
			builder.WriteRune(r)
		default:
			// Non-ASCII: dropped, but still a word boundary.
			lastSpace = true
		}
	}

	return strings.TrimSpace(builder.String())
}

// newlineRun collapses one newline to a line break and two or more to
// exactly one blank line.
func newlineRun(count int) string {
	if count > 1 {
		return "\n\n"
	}
	return "\n"
}
