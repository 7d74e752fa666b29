package latex

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"
	"text/template"

	"github.com/BurntSushi/toml"
)

// TrimSize is the page geometry for one trim preset.
type TrimSize struct {
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	Inner    float64 `toml:"inner"`
	Outer    float64 `toml:"outer"`
	Top      float64 `toml:"top"`
	Bottom   float64 `toml:"bottom"`
	FontSize string  `toml:"font_size"`
}

//go:embed presets.toml
var presetsTOML string

var (
	presetsOnce sync.Once
	presets     map[string]TrimSize
	presetsErr  error
)

func loadPresets() (map[string]TrimSize, error) {
	presetsOnce.Do(func() {
		var doc struct {
			Trim map[string]TrimSize `toml:"trim"`
		}
		if _, err := toml.Decode(presetsTOML, &doc); err != nil {
			presetsErr = fmt.Errorf("decode trim presets: %w", err)
			return
		}
		presets = doc.Trim
	})
	return presets, presetsErr
}

var trimReplacer = strings.NewReplacer(" ", "", "\"", "", "in", "", "×", "x", "X", "x")

// NormalizeTrimSize reduces spellings like `6" x 9"` or "6 X 9 in" to the
// preset form "6x9".
func NormalizeTrimSize(name string) string {
	return trimReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// LookupTrimSize returns the geometry for a trim size name such as "6x9".
func LookupTrimSize(name string) (TrimSize, error) {
	all, err := loadPresets()
	if err != nil {
		return TrimSize{}, err
	}
	ts, ok := all[NormalizeTrimSize(name)]
	if !ok {
		return TrimSize{}, fmt.Errorf("unknown trim size %q (available: %s)", name, strings.Join(TrimSizes(), ", "))
	}
	return ts, nil
}

// TrimSizes lists the preset names in sorted order.
func TrimSizes() []string {
	all, _ := loadPresets()
	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

var preambleTmpl = template.Must(template.New("preamble").Parse(`\documentclass[{{.Trim.FontSize}},openany]{book}
\usepackage[paperwidth={{.Trim.Width}}in,paperheight={{.Trim.Height}}in,inner={{.Trim.Inner}}in,outer={{.Trim.Outer}}in,top={{.Trim.Top}}in,bottom={{.Trim.Bottom}}in]{geometry}
\usepackage{fontspec}
\setmainfont{{"{"}}{{.Font}}{{"}"}}
\usepackage{epigraph}
{{- if .Nonfiction}}
\usepackage{parskip}
{{- end}}
{{- if not .Numbered}}
\setcounter{secnumdepth}{-1}
{{- end}}
\newcommand{\scenebreak}{\par\bigskip\centerline{*\quad*\quad*}\bigskip\par}
\title{{"{"}}{{.Title}}{{"}"}}
\author{{"{"}}{{.Author}}{{"}"}}
\date{}
\begin{document}`))

var titlePageTmpl = template.Must(template.New("title").Parse(`\begin{titlepage}
\centering
\vspace*{0.3\textheight}
{\Huge {{.Title}}\par}
\vspace{2em}
{\Large {{.Author}}\par}
\end{titlepage}`))

type templateData struct {
	Trim       TrimSize
	Font       string
	Title      string
	Author     string
	Numbered   bool
	Nonfiction bool
}

// Finalize expands assembled markup into a complete XeLaTeX document.
//
// The preamble placeholder on the first line becomes the document preamble
// for params, the title-page placeholder becomes a generated title page
// followed by the table of contents, and the document is closed. Text
// values from params are escaped.
func Finalize(markup string, params Params) (string, error) {
	params = params.WithDefaults()
	body, ok := strings.CutPrefix(markup, PreamblePlaceholder)
	if !ok {
		return "", fmt.Errorf("markup does not start with %q", PreamblePlaceholder)
	}
	trim, err := LookupTrimSize(params.TrimSize)
	if err != nil {
		return "", err
	}

	data := templateData{
		Trim:       trim,
		Font:       Escape(params.Font),
		Title:      Escape(params.BookTitle),
		Author:     Escape(params.AuthorName),
		Numbered:   params.Numbered(),
		Nonfiction: strings.EqualFold(params.Genre, "nonfiction"),
	}

	var pre, title strings.Builder
	if err := preambleTmpl.Execute(&pre, data); err != nil {
		return "", fmt.Errorf("render preamble: %w", err)
	}
	if err := titlePageTmpl.Execute(&title, data); err != nil {
		return "", fmt.Errorf("render title page: %w", err)
	}

	const toc = "\\tableofcontents\n\\clearpage"
	if strings.Contains(body, TitlePagePlaceholder) {
		body = strings.Replace(body, TitlePagePlaceholder, title.String()+"\n\n"+toc, 1)
		// Any further title_page blocks are dropped.
		body = strings.ReplaceAll(body, TitlePagePlaceholder, "")
	} else {
		body = "\n" + toc + "\n" + body
	}

	var b strings.Builder
	b.WriteString(pre.String())
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\\end{document}\n")
	return b.String(), nil
}
