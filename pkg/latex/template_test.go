package latex

import (
	"strings"
	"testing"

	"github.com/matzehuels/folio/pkg/manuscript"
)

func TestLookupTrimSize(t *testing.T) {
	ts, err := LookupTrimSize("6x9")
	if err != nil {
		t.Fatalf("LookupTrimSize(6x9) error = %v", err)
	}
	if ts.Width != 6 || ts.Height != 9 {
		t.Errorf("6x9 = %+v", ts)
	}
	if _, err := LookupTrimSize("3x3"); err == nil {
		t.Error("expected error for unknown trim size")
	}
	if names := TrimSizes(); len(names) < 2 {
		t.Errorf("TrimSizes() = %v", names)
	}
}

func TestNormalizeTrimSize(t *testing.T) {
	tests := map[string]string{
		"6x9":        "6x9",
		` 6" x 9" `:  "6x9",
		"5.5 X 8.5":  "5.5x8.5",
		"8.5x11 in":  "8.5x11",
		"5.25 × 8":   "5.25x8",
	}
	for in, want := range tests {
		if got := NormalizeTrimSize(in); got != want {
			t.Errorf("NormalizeTrimSize(%q) = %q, want %q", in, got, want)
		}
		if _, err := LookupTrimSize(in); err != nil {
			t.Errorf("LookupTrimSize(%q) error = %v", in, err)
		}
	}
}

func TestFinalize(t *testing.T) {
	blocks := []manuscript.Block{
		{Type: manuscript.BlockTitlePage},
		{Type: manuscript.BlockChapterHeading, Text: "One", Meta: map[string]any{"chapter_number": float64(1)}},
		{Type: manuscript.BlockParagraph, Text: "Body."},
	}
	markup := NewAssembler(OverlayStrict, nil).Assemble(blocks, DefaultParams(), false)

	params := Params{BookTitle: "Cats & Dogs", AuthorName: "J. Doe", TrimSize: "5x8"}
	doc, err := Finalize(markup, params)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	for _, want := range []string{
		`\documentclass[10pt,openany]{book}`,
		"paperwidth=5in,paperheight=8in",
		`\setmainfont{Garamond}`,
		`\title{Cats \& Dogs}`,
		`\author{J. Doe}`,
		`\begin{document}`,
		`\begin{titlepage}`,
		`\tableofcontents`,
		`\chapter{One}`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, PreamblePlaceholder) || strings.Contains(doc, TitlePagePlaceholder) {
		t.Error("placeholders not replaced")
	}
	if !strings.HasSuffix(doc, "\\end{document}\n") {
		t.Error("document not closed")
	}
	if strings.Index(doc, `\begin{titlepage}`) > strings.Index(doc, `\tableofcontents`) {
		t.Error("table of contents precedes title page")
	}
}

func TestFinalizeWithoutTitlePage(t *testing.T) {
	doc, err := Finalize(PreamblePlaceholder+"\n", Params{ChapterStyle: "unnumbered"})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if !strings.Contains(doc, `\setcounter{secnumdepth}{-1}`) {
		t.Error("unnumbered chapter style not applied")
	}
	if !strings.Contains(doc, "\\begin{document}\n\\tableofcontents") {
		t.Errorf("table of contents not placed after \\begin{document}:\n%s", doc)
	}
}

func TestFinalizeErrors(t *testing.T) {
	if _, err := Finalize("no placeholder", DefaultParams()); err == nil {
		t.Error("expected error for markup without preamble placeholder")
	}
	if _, err := Finalize(PreamblePlaceholder+"\n", Params{TrimSize: "1x1"}); err == nil {
		t.Error("expected error for unknown trim size")
	}
}

func TestParamsWithDefaults(t *testing.T) {
	p := Params{Font: "Palatino", BookTitle: "  "}.WithDefaults()
	if p.Font != "Palatino" {
		t.Errorf("Font = %q, want Palatino", p.Font)
	}
	if p.BookTitle != DefaultBookTitle || p.TrimSize != DefaultTrimSize || p.AuthorName != DefaultAuthorName {
		t.Errorf("defaults not applied: %+v", p)
	}
	if !p.Numbered() {
		t.Error("default chapter style should be numbered")
	}
}
