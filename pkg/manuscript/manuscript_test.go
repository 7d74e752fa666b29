package manuscript

import (
	"strings"
	"testing"
)

const sampleDoc = `{
  "artifact_type": "manuscript",
  "schema_version": "1.0",
  "content": {
    "blocks": [
      {"type": "chapter_heading", "text": "One", "meta": {"chapter_number": 1}},
      {"type": "paragraph", "text": "Hello world", "marks": [{"type": "italic", "start": 0, "end": 5}]},
      {"type": "sidebar", "text": "?"}
    ]
  },
  "analysis": {
    "warnings": [{"code": "DETECTED_FOOTNOTES", "severity": "low"}],
    "quality": {"chapter_boundary_confidence": 0.7, "ocr_used": true}
  }
}`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.ArtifactType != ArtifactType {
		t.Errorf("ArtifactType = %q, want %q", doc.ArtifactType, ArtifactType)
	}
	if got := len(doc.Content.Blocks); got != 3 {
		t.Fatalf("len(Blocks) = %d, want 3", got)
	}
	if doc.Content.Blocks[2].Type != "sidebar" {
		t.Errorf("unknown block type should decode unchanged, got %q", doc.Content.Blocks[2].Type)
	}
	if len(doc.Analysis.Warnings) != 1 || doc.Analysis.Warnings[0].Code != "DETECTED_FOOTNOTES" {
		t.Errorf("Warnings = %+v", doc.Analysis.Warnings)
	}
	q := doc.Analysis.Quality
	if q.ChapterBoundaryConfidence == nil || *q.ChapterBoundaryConfidence != 0.7 || !q.OCRUsed {
		t.Errorf("Quality = %+v", q)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := DecodeBytes([]byte("{not json")); err == nil {
		t.Error("DecodeBytes() expected error for malformed JSON")
	}
}

func TestKnownBlockType(t *testing.T) {
	for _, bt := range []BlockType{BlockTitlePage, BlockParagraph, BlockFootnote, BlockEpigraph} {
		if !KnownBlockType(bt) {
			t.Errorf("KnownBlockType(%q) = false", bt)
		}
	}
	if KnownBlockType("sidebar") {
		t.Error("KnownBlockType(sidebar) = true")
	}
	if len(knownBlockTypes) != 14 {
		t.Errorf("expected 14 block types, got %d", len(knownBlockTypes))
	}
}

func TestChapterNumber(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want bool
	}{
		{"absent", nil, false},
		{"number", map[string]any{"chapter_number": float64(3)}, true},
		{"zero", map[string]any{"chapter_number": float64(0)}, false},
		{"null", map[string]any{"chapter_number": nil}, false},
		{"empty string", map[string]any{"chapter_number": ""}, false},
		{"roman", map[string]any{"chapter_number": "IV"}, true},
		{"false", map[string]any{"chapter_number": false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Block{Type: BlockChapterHeading, Meta: tt.meta}
			if _, got := b.ChapterNumber(); got != tt.want {
				t.Errorf("ChapterNumber() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateMarks(t *testing.T) {
	doc := &Document{Content: Content{Blocks: []Block{
		{Type: BlockParagraph, Text: "héllo", Marks: []Mark{
			{Type: MarkBold, Start: 0, End: 5},
			{Type: MarkItalic, Start: 2, End: 2},
			{Type: MarkItalic, Start: 3, End: 6},
			{Type: MarkCode, Start: -1, End: 1},
		}},
		{Type: BlockParagraph, Text: "ok"},
	}}}

	errs := doc.ValidateMarks()
	if len(errs) != 3 {
		t.Fatalf("ValidateMarks() returned %d errors, want 3: %v", len(errs), errs)
	}
	want := []string{"content.blocks.0.marks.1", "content.blocks.0.marks.2", "content.blocks.0.marks.3"}
	for i, e := range errs {
		if e.Path != want[i] {
			t.Errorf("errs[%d].Path = %q, want %q", i, e.Path, want[i])
		}
	}
}
