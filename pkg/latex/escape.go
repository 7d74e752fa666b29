// Package latex converts manuscript blocks into LaTeX markup.
//
// The conversion happens in three layers:
//
//   - The mark overlay engine ([Escape], [Overlay]) turns a block's plain text
//     and inline marks into escaped text with style wrappers.
//   - The block renderer ([Renderer.RenderBlock]) maps one block to one markup
//     fragment according to its type and the rendering mode.
//   - The assembler ([Assembler.Assemble]) concatenates fragments behind a
//     preamble placeholder that [Finalize] later expands into a complete
//     XeLaTeX document.
//
// Every function in this package is pure: the same blocks and parameters
// always produce byte-identical output.
package latex

import "strings"

// escapes maps each reserved LaTeX character to its literal replacement.
var escapes = map[rune]string{
	'&':  `\&`,
	'%':  `\%`,
	'$':  `\$`,
	'#':  `\#`,
	'_':  `\_`,
	'{':  `\{`,
	'}':  `\}`,
	'~':  `\textasciitilde{}`,
	'^':  `\textasciicircum{}`,
	'\\': `\textbackslash{}`,
}

// Escape replaces every reserved LaTeX character in s with its literal form.
//
// The substitution is a single left-to-right scan over s, so braces and
// backslashes introduced by a replacement are never escaped a second time.
func Escape(s string) string {
	if !strings.ContainsAny(s, `&%$#_{}~^\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if rep, ok := escapes[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
