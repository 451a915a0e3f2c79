package domain

import "fmt"

// Snapshot is an immutable copy of a document's full text at the moment it was read.
type Snapshot struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Range is a half-open byte range [Start, End) inside a document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Full returns the range covering a document of the given length.
func Full(length int) Range {
	return Range{Start: 0, End: length}
}

// At returns the empty range positioned at offset, used for insertions.
func At(offset int) Range {
	return Range{Start: offset, End: offset}
}

// Validate checks the range against a document of the given length.
func (r Range) Validate(length int) error {
	if r.Start < 0 || r.End < r.Start || r.End > length {
		return fmt.Errorf("%w: [%d,%d) in document of length %d", ErrInvalidRange, r.Start, r.End, length)
	}
	return nil
}

// Splice applies a replacement of r with text to s. The range must be valid.
func Splice(s string, r Range, text string) string {
	return s[:r.Start] + text + s[r.End:]
}
