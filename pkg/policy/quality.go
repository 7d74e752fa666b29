package policy

import (
	"fmt"

	"github.com/matzehuels/folio/pkg/manuscript"
)

var severityLevels = map[string]int{"low": 0, "medium": 1, "high": 2}

// MinChapterConfidence is the chapter-boundary confidence below which a
// manual review is suggested.
const MinChapterConfidence = 0.8

// AboveSeverity returns the warnings whose severity is strictly greater than
// maxSeverity. Warnings without a severity count as "low"; an unknown
// maxSeverity counts as "medium".
func AboveSeverity(warnings []manuscript.Warning, maxSeverity string) []manuscript.Warning {
	threshold, ok := severityLevels[maxSeverity]
	if !ok {
		threshold = severityLevels["medium"]
	}
	var out []manuscript.Warning
	for _, w := range warnings {
		sev := w.Severity
		if sev == "" {
			sev = "low"
		}
		if severityLevels[sev] > threshold {
			out = append(out, w)
		}
	}
	return out
}

// Issue is a quality concern found in the parser's self-assessment.
type Issue struct {
	Metric  string `json:"metric"`
	Message string `json:"message"`
}

// QualityIssues reports metrics that suggest a manual review. The result is
// informational and never affects the policy decision.
func QualityIssues(q manuscript.Quality) []Issue {
	var issues []Issue
	if c := q.ChapterBoundaryConfidence; c != nil && *c < MinChapterConfidence {
		issues = append(issues, Issue{
			Metric:  "chapter_boundary_confidence",
			Message: fmt.Sprintf("Low confidence (%.2f). Manual review recommended.", *c),
		})
	}
	if q.OCRUsed {
		issues = append(issues, Issue{
			Metric:  "ocr_used",
			Message: "OCR was used. Text quality may be lower than native text extraction.",
		})
	}
	if q.ParsingErrorsCount > 0 {
		issues = append(issues, Issue{
			Metric:  "parsing_errors",
			Message: fmt.Sprintf("%d parsing error(s) encountered during processing.", q.ParsingErrorsCount),
		})
	}
	return issues
}
