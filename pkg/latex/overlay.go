package latex

import (
	"slices"
	"strings"

	"github.com/matzehuels/folio/pkg/manuscript"
)

// OverlayMode selects how text outside mark spans is treated.
type OverlayMode int

const (
	// OverlayStrict escapes the whole text and nests overlapping marks. A
	// mark crossing one applied earlier is split at the crossing point.
	// Characters are escaped exactly once whether or not a mark covers them.
	OverlayStrict OverlayMode = iota

	// OverlayCompat reproduces the legacy span-only escaping gap: when marks
	// are present only the mark-covered spans are escaped, and each mark is
	// spliced into the partially rewritten string at its raw offsets.
	// Escaping itself still uses the single-pass table of [Escape].
	OverlayCompat
)

// String returns the configuration name of the mode.
func (m OverlayMode) String() string {
	if m == OverlayCompat {
		return "compat"
	}
	return "strict"
}

// ParseOverlayMode maps a configuration name to a mode. Unknown names yield
// OverlayStrict and false.
func ParseOverlayMode(s string) (OverlayMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return OverlayStrict, true
	case "compat":
		return OverlayCompat, true
	}
	return OverlayStrict, false
}

var markCommands = map[manuscript.MarkType]string{
	manuscript.MarkItalic:    `\textit`,
	manuscript.MarkBold:      `\textbf`,
	manuscript.MarkSmallCaps: `\textsc`,
	manuscript.MarkCode:      `\texttt`,
}

// wrap surrounds already-escaped text with the command for t. Unknown mark
// types pass through unwrapped.
func wrap(t manuscript.MarkType, escaped string) string {
	cmd, ok := markCommands[t]
	if !ok {
		return escaped
	}
	return cmd + "{" + escaped + "}"
}

// sortedMarks returns the valid marks of text ordered for right-to-left
// application: start descending, and for equal starts the shorter span
// first so an enclosing mark is applied after the marks it contains.
// The input slice is not modified.
func sortedMarks(marks []manuscript.Mark, n int) []manuscript.Mark {
	out := make([]manuscript.Mark, 0, len(marks))
	for _, m := range marks {
		if m.Valid(n) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b manuscript.Mark) int {
		if a.Start != b.Start {
			return b.Start - a.Start
		}
		return a.End - b.End
	})
	return out
}

// Overlay renders text with its inline marks applied.
//
// With no marks the result equals Escape(text). Otherwise marks are sorted
// by start offset descending and applied right to left, so splices at higher
// offsets never shift the offsets of marks still to be applied. Offsets are
// code-point offsets. Marks outside the text, or empty marks, are skipped.
func Overlay(text string, marks []manuscript.Mark, mode OverlayMode) string {
	if len(marks) == 0 {
		return Escape(text)
	}
	runes := []rune(text)
	ordered := sortedMarks(marks, len(runes))
	if mode == OverlayCompat {
		return overlayCompat(runes, ordered)
	}
	return overlayStrict(runes, ordered)
}

func overlayCompat(text []rune, marks []manuscript.Mark) string {
	result := slices.Clone(text)
	for _, m := range marks {
		end := min(m.End, len(result))
		wrapped := []rune(wrap(m.Type, Escape(string(result[m.Start:end]))))
		result = slices.Concat(result[:m.Start:m.Start], wrapped, result[end:])
	}
	return string(result)
}

// span is a piece of the output covering [start, end) of the source text.
// Leaves hold one escaped code point; wrapped spans hold the spans their
// mark encloses.
type span struct {
	start, end int
	leaf       string
	wrapped    bool
	mark       manuscript.MarkType
	children   []span
}

func (s span) render(b *strings.Builder) {
	if !s.wrapped {
		b.WriteString(s.leaf)
		return
	}
	var inner strings.Builder
	for _, c := range s.children {
		c.render(&inner)
	}
	b.WriteString(wrap(s.mark, inner.String()))
}

// split cuts a wrapped span at p, start < p < end. Both halves keep the
// mark, so a crossing mark never removes styling applied earlier.
func (s span) split(p int) (span, span) {
	left := span{start: s.start, end: p, wrapped: true, mark: s.mark}
	right := span{start: p, end: s.end, wrapped: true, mark: s.mark}
	for _, c := range s.children {
		switch {
		case c.end <= p:
			left.children = append(left.children, c)
		case c.start >= p:
			right.children = append(right.children, c)
		default:
			l, r := c.split(p)
			left.children = append(left.children, l)
			right.children = append(right.children, r)
		}
	}
	return left, right
}

// cutAt makes p a span boundary in spans.
func cutAt(spans []span, p int) []span {
	for i, s := range spans {
		if s.start < p && p < s.end {
			l, r := s.split(p)
			return slices.Replace(spans, i, i+1, l, r)
		}
	}
	return spans
}

func overlayStrict(text []rune, marks []manuscript.Mark) string {
	spans := make([]span, len(text))
	for i, r := range text {
		spans[i] = span{start: i, end: i + 1, leaf: Escape(string(r))}
	}

	for _, m := range marks {
		spans = cutAt(cutAt(spans, m.Start), m.End)
		lo := slices.IndexFunc(spans, func(s span) bool { return s.start == m.Start })
		hi := slices.IndexFunc(spans, func(s span) bool { return s.end == m.End }) + 1
		merged := span{
			start:    m.Start,
			end:      m.End,
			wrapped:  true,
			mark:     m.Type,
			children: slices.Clone(spans[lo:hi]),
		}
		spans = slices.Replace(spans, lo, hi, merged)
	}

	var b strings.Builder
	for _, s := range spans {
		s.render(&b)
	}
	return b.String()
}
