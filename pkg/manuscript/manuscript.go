// Package manuscript defines the structured manuscript document that folio
// converts into a print interior.
//
// A manuscript is an ordered list of typed blocks. Each block carries plain
// text and a set of inline marks (italic, bold, small caps, code) addressed by
// half-open code-point offsets into that text. The upstream analysis stage also
// attaches warnings that the policy engine turns into a processing decision.
//
// Values in this package are plain data. They are decoded once and never
// mutated during conversion.
package manuscript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ArtifactType is the artifact_type tag carried by every manuscript document.
const ArtifactType = "manuscript"

// SchemaVersion is the manuscript schema version this module understands.
const SchemaVersion = "1.0"

// BlockType identifies the kind of a block.
//
// Block types are kept as strings rather than a closed enum so that documents
// carrying types this version does not know about still decode and reach the
// renderer's fallback path.
type BlockType string

// The closed set of block types produced by the upstream parser.
const (
	BlockTitlePage          BlockType = "title_page"
	BlockFrontMatterHeading BlockType = "front_matter_heading"
	BlockFrontMatterText    BlockType = "front_matter_text"
	BlockChapterHeading     BlockType = "chapter_heading"
	BlockParagraph          BlockType = "paragraph"
	BlockSceneBreak         BlockType = "scene_break"
	BlockBackMatterHeading  BlockType = "back_matter_heading"
	BlockBackMatterText     BlockType = "back_matter_text"
	BlockBlockquote         BlockType = "blockquote"
	BlockListItem           BlockType = "list_item"
	BlockEpigraph           BlockType = "epigraph"
	BlockImagePlaceholder   BlockType = "image_placeholder"
	BlockTablePlaceholder   BlockType = "table_placeholder"
	BlockFootnote           BlockType = "footnote"
)

var knownBlockTypes = map[BlockType]bool{
	BlockTitlePage:          true,
	BlockFrontMatterHeading: true,
	BlockFrontMatterText:    true,
	BlockChapterHeading:     true,
	BlockParagraph:          true,
	BlockSceneBreak:         true,
	BlockBackMatterHeading:  true,
	BlockBackMatterText:     true,
	BlockBlockquote:         true,
	BlockListItem:           true,
	BlockEpigraph:           true,
	BlockImagePlaceholder:   true,
	BlockTablePlaceholder:   true,
	BlockFootnote:           true,
}

// KnownBlockType reports whether t is one of the fourteen defined block types.
func KnownBlockType(t BlockType) bool {
	return knownBlockTypes[t]
}

// MarkType identifies an inline style.
type MarkType string

// Inline mark types.
const (
	MarkItalic    MarkType = "italic"
	MarkBold      MarkType = "bold"
	MarkSmallCaps MarkType = "smallcaps"
	MarkCode      MarkType = "code"
)

// KnownMarkType reports whether t is one of the four defined mark types.
func KnownMarkType(t MarkType) bool {
	switch t {
	case MarkItalic, MarkBold, MarkSmallCaps, MarkCode:
		return true
	}
	return false
}

// Mark is an inline style applied to the half-open code-point range
// [Start, End) of its block's text.
type Mark struct {
	Type  MarkType `json:"type"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

// Block is one structural unit of a manuscript.
type Block struct {
	Type  BlockType      `json:"type"`
	Text  string         `json:"text"`
	Marks []Mark         `json:"marks,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Warning is a condition flagged by the upstream analysis stage.
type Warning struct {
	Code     string `json:"code"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Quality carries the parser's self-assessment of a manuscript.
type Quality struct {
	ChapterBoundaryConfidence *float64 `json:"chapter_boundary_confidence,omitempty"`
	OCRUsed                   bool     `json:"ocr_used,omitempty"`
	ParsingErrorsCount        int      `json:"parsing_errors_count,omitempty"`
}

// Analysis groups the warnings and quality metrics attached to a manuscript.
type Analysis struct {
	Warnings []Warning `json:"warnings,omitempty"`
	Quality  Quality   `json:"quality"`
}

// Content holds the ordered block list.
type Content struct {
	Blocks []Block `json:"blocks"`
}

// Document is a decoded manuscript.
type Document struct {
	ArtifactType  string   `json:"artifact_type"`
	SchemaVersion string   `json:"schema_version"`
	Content       Content  `json:"content"`
	Analysis      Analysis `json:"analysis"`
}

// Decode reads a manuscript document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manuscript: %w", err)
	}
	return &doc, nil
}

// DecodeBytes decodes a manuscript document from raw JSON.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// ChapterNumber returns the block's meta.chapter_number and whether it is
// present and truthy. A zero, empty, false or null value counts as absent.
func (b Block) ChapterNumber() (any, bool) {
	v, ok := b.Meta["chapter_number"]
	if !ok || v == nil {
		return nil, false
	}
	switch n := v.(type) {
	case bool:
		return n, n
	case string:
		return n, n != ""
	case float64:
		return n, n != 0
	case int:
		return n, n != 0
	case json.Number:
		return n, n.String() != "0" && n.String() != ""
	}
	return v, true
}
