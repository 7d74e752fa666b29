package latex

import (
	"strings"
	"testing"

	"github.com/matzehuels/folio/pkg/manuscript"
)

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(OverlayStrict, nil)
	got := a.Assemble(nil, DefaultParams(), false)
	if want := PreamblePlaceholder + "\n"; got != want {
		t.Errorf("Assemble(nil) = %q, want %q", got, want)
	}
}

func TestAssemble(t *testing.T) {
	blocks := []manuscript.Block{
		{Type: manuscript.BlockTitlePage, Text: "Book"},
		{Type: manuscript.BlockChapterHeading, Text: "One", Meta: map[string]any{"chapter_number": float64(1)}},
		{Type: manuscript.BlockParagraph, Text: "First."},
		{Type: manuscript.BlockFootnote, Text: "dropped"},
		{Type: manuscript.BlockSceneBreak},
		{Type: manuscript.BlockParagraph, Text: "Second."},
	}

	a := &Assembler{Renderer: &Renderer{}}
	got := a.Assemble(blocks, DefaultParams(), false)
	want := strings.Join([]string{
		PreamblePlaceholder, "",
		TitlePagePlaceholder, "",
		`\chapter{One}`, "",
		"First.", "",
		`\scenebreak`, "",
		"Second.", "",
	}, "\n")
	if got != want {
		t.Errorf("Assemble() =\n%s\nwant\n%s", got, want)
	}
}

func TestAssembleDegradedKeepsUnsupportedMarkers(t *testing.T) {
	blocks := []manuscript.Block{
		{Type: manuscript.BlockParagraph, Text: "a"},
		{Type: manuscript.BlockFootnote, Text: "b"},
	}
	got := NewAssembler(OverlayStrict, nil).Assemble(blocks, DefaultParams(), true)
	want := PreamblePlaceholder + "\n\na\n\n% UNSUPPORTED: footnote\n"
	if got != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
}

func TestAssembleGroupsListItems(t *testing.T) {
	blocks := []manuscript.Block{
		{Type: manuscript.BlockParagraph, Text: "Shopping:"},
		{Type: manuscript.BlockListItem, Text: "Eggs"},
		{Type: manuscript.BlockListItem, Text: "Milk"},
		{Type: manuscript.BlockParagraph, Text: "Done."},
		{Type: manuscript.BlockListItem, Text: "Last"},
	}

	tests := []struct {
		name     string
		group    bool
		degraded bool
		want     string
	}{
		{
			name:  "grouped",
			group: true,
			want: PreamblePlaceholder + "\n\nShopping:\n\n" +
				"\\begin{itemize}\n\\item Eggs\n\\item Milk\n\\end{itemize}\n\n" +
				"Done.\n\n" +
				"\\begin{itemize}\n\\item Last\n\\end{itemize}\n",
		},
		{
			name: "ungrouped",
			want: PreamblePlaceholder + "\n\nShopping:\n\n\\item Eggs\n\n\\item Milk\n\nDone.\n\n\\item Last\n",
		},
		{
			name:     "degraded ignores grouping",
			group:    true,
			degraded: true,
			want:     PreamblePlaceholder + "\n\nShopping:\n\n• Eggs\n\n• Milk\n\nDone.\n\n• Last\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Assembler{Renderer: &Renderer{}, GroupListItems: tt.group}
			if got := a.Assemble(blocks, DefaultParams(), tt.degraded); got != tt.want {
				t.Errorf("Assemble() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestAssembleIdempotent(t *testing.T) {
	blocks := []manuscript.Block{
		{Type: manuscript.BlockChapterHeading, Text: "Prologue"},
		{Type: manuscript.BlockParagraph, Text: "A & B", Marks: []manuscript.Mark{{Type: manuscript.MarkBold, Start: 4, End: 5}}},
		{Type: manuscript.BlockEpigraph, Text: "Quote"},
	}
	a := NewAssembler(OverlayStrict, nil)
	first := a.Assemble(blocks, DefaultParams(), false)
	second := a.Assemble(blocks, DefaultParams(), false)
	if first != second {
		t.Error("Assemble() is not deterministic")
	}
}
