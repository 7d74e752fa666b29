package policy

import (
	"testing"

	"github.com/matzehuels/folio/pkg/manuscript"
)

func TestAboveSeverity(t *testing.T) {
	ws := []manuscript.Warning{
		{Code: "A"},
		{Code: "B", Severity: "medium"},
		{Code: "C", Severity: "high"},
		{Code: "D", Severity: "low"},
	}

	tests := []struct {
		max  string
		want []string
	}{
		{"low", []string{"B", "C"}},
		{"medium", []string{"C"}},
		{"high", nil},
		{"bogus", []string{"C"}},
	}
	for _, tt := range tests {
		t.Run(tt.max, func(t *testing.T) {
			got := AboveSeverity(ws, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("AboveSeverity(%q) = %v, want codes %v", tt.max, got, tt.want)
			}
			for i := range got {
				if got[i].Code != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, got[i].Code, tt.want[i])
				}
			}
		})
	}
}

func TestQualityIssues(t *testing.T) {
	low, high := 0.5, 0.95

	if issues := QualityIssues(manuscript.Quality{ChapterBoundaryConfidence: &high}); len(issues) != 0 {
		t.Errorf("QualityIssues(clean) = %v, want none", issues)
	}

	issues := QualityIssues(manuscript.Quality{
		ChapterBoundaryConfidence: &low,
		OCRUsed:                   true,
		ParsingErrorsCount:        3,
	})
	if len(issues) != 3 {
		t.Fatalf("QualityIssues() = %v, want 3 issues", issues)
	}
	if want := "Low confidence (0.50). Manual review recommended."; issues[0].Message != want {
		t.Errorf("confidence message = %q, want %q", issues[0].Message, want)
	}
	if want := "3 parsing error(s) encountered during processing."; issues[2].Message != want {
		t.Errorf("parsing message = %q, want %q", issues[2].Message, want)
	}
}
