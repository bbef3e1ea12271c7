// Package models defines data structures for the LetterVault document index.
package models

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Document is a source PDF identified by filename and publication year.
// Immutable once ingested.
type Document struct {
	// Path is the location of the source file on disk.
	Path string

	// Name is the base filename, e.g. "1999.pdf".
	Name string

	// Year is the publication year, parsed from the filename.
	Year int
}

// yearPattern matches the first 4-digit run in a filename.
var yearPattern = regexp.MustCompile(`\d{4}`)

// NewDocument builds a Document from a file path, deriving the year
// from the filename. Filenames without a 4-digit year default to the
// current year.
func NewDocument(path string) Document {
	name := filepath.Base(path)
	return Document{
		Path: path,
		Name: name,
		Year: YearFromFilename(name),
	}
}

// YearFromFilename extracts the first 4-digit year from a filename.
// Returns the current year if none is found.
func YearFromFilename(name string) int {
	if m := yearPattern.FindString(name); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil {
			return year
		}
	}
	return time.Now().Year()
}

// Stem returns the document name without its extension, used as the
// record ID prefix for its chunks.
func (d Document) Stem() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}
