package pipeline

import (
	"strings"
	"testing"

	ferrors "github.com/matzehuels/folio/pkg/errors"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/policy"
)

const sampleManuscript = `{
  "artifact_type": "manuscript",
  "schema_version": "1.0",
  "content": {
    "blocks": [
      {"type": "title_page", "text": "Engines"},
      {"type": "chapter_heading", "text": "Beginnings", "meta": {"chapter_number": 1}},
      {"type": "paragraph", "text": "It was 100% true & odd.", "marks": [{"type": "italic", "start": 0, "end": 2}]},
      {"type": "scene_break", "text": "***"},
      {"type": "paragraph", "text": "Bad mark.", "marks": [{"type": "bold", "start": 4, "end": 40}]}
    ]
  },
  "analysis": {
    "warnings": WARNINGS,
    "quality": {"chapter_boundary_confidence": 0.95, "ocr_used": false, "parsing_errors_count": 0}
  }
}`

func manuscriptWith(warnings string) []byte {
	return []byte(strings.Replace(sampleManuscript, "WARNINGS", warnings, 1))
}

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	c, err := DefaultConverter(nil)
	if err != nil {
		t.Fatalf("DefaultConverter() error: %v", err)
	}
	return c
}

func TestConvertProceed(t *testing.T) {
	c := newTestConverter(t)

	conv, err := c.Convert(manuscriptWith(`[]`), latex.Params{BookTitle: "Engines", TrimSize: "5.5 x 8.5"})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if conv.Decision.Action != policy.ActionProceed {
		t.Errorf("Decision = %v", conv.Decision.Action)
	}
	if conv.Params.TrimSize != "5.5 x 8.5" || conv.Params.AuthorName != latex.DefaultAuthorName {
		t.Errorf("Params = %+v", conv.Params)
	}
	if len(conv.MarkIssues) != 1 || conv.MarkIssues[0].Path != "content.blocks.4.marks.0" {
		t.Errorf("MarkIssues = %v", conv.MarkIssues)
	}

	for _, want := range []string{
		`\documentclass`,
		`\chapter{Beginnings}`,
		`\textit{It} was 100\% true \& odd.`,
		`\scenebreak`,
		"Bad mark.",
		`\end{document}`,
	} {
		if !strings.Contains(conv.Source, want) {
			t.Errorf("Source missing %q", want)
		}
	}
	if !strings.HasPrefix(conv.Markup, latex.PreamblePlaceholder) {
		t.Error("Markup should start with the preamble placeholder")
	}
}

func TestConvertDegrade(t *testing.T) {
	c := newTestConverter(t)

	conv, err := c.Convert(manuscriptWith(`[{"code": "DETECTED_FOOTNOTES", "severity": "medium"}]`), latex.Params{})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if !conv.Decision.Degraded() {
		t.Fatalf("Decision = %+v, want DEGRADE", conv.Decision)
	}
	if len(conv.Decision.Degradations) != 1 || conv.Decision.Degradations[0] != "Footnotes rendered inline" {
		t.Errorf("Degradations = %v", conv.Decision.Degradations)
	}
}

func TestConvertPolicyFail(t *testing.T) {
	c := newTestConverter(t)

	conv, err := c.Convert(manuscriptWith(`[{"code": "DETECTED_TABLES"}]`), latex.Params{})
	if !ferrors.Is(err, ferrors.ErrCodePolicyFail) {
		t.Fatalf("Convert() error = %v, want POLICY_FAIL", err)
	}
	if !strings.Contains(err.Error(), "Tables not supported in MVP") {
		t.Errorf("error = %v", err)
	}
	if conv == nil || conv.Source != "" {
		t.Error("failed conversion should carry the decision but no source")
	}
}

func TestConvertSchemaInvalid(t *testing.T) {
	c := newTestConverter(t)

	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{`},
		{"wrong type", `{"artifact_type": "cover", "schema_version": "1.0", "content": {"blocks": []}}`},
		{"missing blocks", `{"artifact_type": "manuscript", "schema_version": "1.0", "content": {}}`},
		{"unknown block type", `{"artifact_type": "manuscript", "schema_version": "1.0", "content": {"blocks": [{"type": "sidebar", "text": "x"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Convert([]byte(tt.data), latex.Params{})
			if !ferrors.Is(err, ferrors.ErrCodeSchemaInvalid) {
				t.Errorf("Convert() error = %v, want SCHEMA_INVALID", err)
			}
		})
	}
}

func TestConvertUnknownTrimSizeFallsBack(t *testing.T) {
	c := newTestConverter(t)

	conv, err := c.Convert(manuscriptWith(`[]`), latex.Params{TrimSize: "4x4"})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if conv.Params.TrimSize != latex.DefaultTrimSize {
		t.Errorf("TrimSize = %q, want default", conv.Params.TrimSize)
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	c := newTestConverter(t)
	data := manuscriptWith(`[{"code": "UNICODE_RISK"}]`)

	a, err := c.Convert(data, latex.Params{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Convert(data, latex.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Source != b.Source {
		t.Error("same input produced different LaTeX")
	}
}
