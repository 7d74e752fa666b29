package manuscript

import (
	"fmt"
	"unicode/utf8"
)

// MarkError describes a mark whose offsets fall outside its block's text.
type MarkError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e MarkError) Error() string {
	return e.Path + ": " + e.Message
}

// Valid reports whether m addresses a non-empty range inside a text of n
// code points.
func (m Mark) Valid(n int) bool {
	return m.Start >= 0 && m.End <= n && m.Start < m.End
}

// TextLen returns the length of the block text in code points, the unit mark
// offsets are expressed in.
func (b Block) TextLen() int {
	return utf8.RuneCountInString(b.Text)
}

// ValidateMarks reports every mark of b that violates
// 0 <= start < end <= len(text).
func (b Block) ValidateMarks() []MarkError {
	n := b.TextLen()
	var errs []MarkError
	for j, m := range b.Marks {
		if m.Valid(n) {
			continue
		}
		errs = append(errs, MarkError{
			Path:    fmt.Sprintf("marks.%d", j),
			Message: fmt.Sprintf("mark %q range [%d, %d) outside text of length %d", m.Type, m.Start, m.End, n),
		})
	}
	return errs
}

// ValidateMarks checks the marks of every block in the document. Paths are
// rooted at the document, e.g. "content.blocks.3.marks.0".
func (d *Document) ValidateMarks() []MarkError {
	var errs []MarkError
	for i, b := range d.Content.Blocks {
		for _, e := range b.ValidateMarks() {
			e.Path = fmt.Sprintf("content.blocks.%d.%s", i, e.Path)
			errs = append(errs, e)
		}
	}
	return errs
}
