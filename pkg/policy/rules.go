package policy

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"go.yaml.in/yaml/v3"
)

// DefaultMaxDegrade is the largest number of DEGRADE warnings tolerated in a
// single manuscript.
const DefaultMaxDegrade = 5

// Warning codes known to the default rule set.
const (
	CodeDetectedImages          = "DETECTED_IMAGES"
	CodeDetectedTables          = "DETECTED_TABLES"
	CodeDetectedFootnotes       = "DETECTED_FOOTNOTES"
	CodePoemLikeBlocks          = "POEM_LIKE_BLOCKS"
	CodeUnicodeRisk             = "UNICODE_RISK"
	CodeExcessiveWhitespace     = "EXCESSIVE_WHITESPACE"
	CodeCenteredTextBlocks      = "CENTERED_TEXT_BLOCKS"
	CodeOCRArtifacts            = "OCR_ARTIFACTS"
	CodeFormattingInconsistency = "FORMATTING_INCONSISTENCY"
	CodeLowChapterConfidence    = "LOW_CHAPTER_CONFIDENCE"
)

// Rules maps warning codes to human-readable messages, one table per action.
type Rules struct {
	Fail       map[string]string `yaml:"fail"`
	Degrade    map[string]string `yaml:"degrade"`
	Proceed    map[string]string `yaml:"proceed"`
	MaxDegrade int               `yaml:"max_degrade"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Fail: map[string]string{
			CodeDetectedImages: "Images not supported in MVP",
			CodeDetectedTables: "Tables not supported in MVP",
		},
		Degrade: map[string]string{
			CodeDetectedFootnotes:       "Footnotes rendered inline",
			CodePoemLikeBlocks:          "Poetry rendered as blockquotes",
			CodeUnicodeRisk:             "Non-standard characters may render incorrectly",
			CodeExcessiveWhitespace:     "Extra spacing normalized",
			CodeCenteredTextBlocks:      "Centered text rendered left-aligned",
			CodeOCRArtifacts:            "OCR errors may affect quality",
			CodeFormattingInconsistency: "Inconsistent formatting normalized",
		},
		Proceed: map[string]string{
			CodeLowChapterConfidence: "Chapter detection uncertain but proceeding",
		},
		MaxDegrade: DefaultMaxDegrade,
	}
}

func (r Rules) clone() Rules {
	return Rules{
		Fail:       maps.Clone(r.Fail),
		Degrade:    maps.Clone(r.Degrade),
		Proceed:    maps.Clone(r.Proceed),
		MaxDegrade: r.MaxDegrade,
	}
}

// Merge returns r with every entry of override applied. A code moved to a
// different table is removed from the table it was in. A positive
// override.MaxDegrade replaces the threshold.
func (r Rules) Merge(override Rules) Rules {
	out := r.clone()
	move := func(dst map[string]string, src map[string]string) {
		for code, msg := range src {
			delete(out.Fail, code)
			delete(out.Degrade, code)
			delete(out.Proceed, code)
			dst[code] = msg
		}
	}
	if out.Fail == nil {
		out.Fail = map[string]string{}
	}
	if out.Degrade == nil {
		out.Degrade = map[string]string{}
	}
	if out.Proceed == nil {
		out.Proceed = map[string]string{}
	}
	move(out.Fail, override.Fail)
	move(out.Degrade, override.Degrade)
	move(out.Proceed, override.Proceed)
	if override.MaxDegrade > 0 {
		out.MaxDegrade = override.MaxDegrade
	}
	return out
}

// Validate checks that no code appears in more than one table and that the
// threshold is usable.
func (r Rules) Validate() error {
	seen := map[string]string{}
	for _, tbl := range []struct {
		name  string
		rules map[string]string
	}{{"fail", r.Fail}, {"degrade", r.Degrade}, {"proceed", r.Proceed}} {
		for _, code := range slices.Sorted(maps.Keys(tbl.rules)) {
			if prev, ok := seen[code]; ok {
				return fmt.Errorf("warning code %s listed in both %s and %s", code, prev, tbl.name)
			}
			seen[code] = tbl.name
		}
	}
	if r.MaxDegrade < 0 {
		return fmt.Errorf("max_degrade must not be negative, got %d", r.MaxDegrade)
	}
	return nil
}

// ParseRules decodes a YAML rules document.
//
//	max_degrade: 3
//	degrade:
//	  DROP_CAPS: "Drop caps rendered as plain letters"
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse policy rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// LoadRules reads a YAML rules file and merges it over [DefaultRules].
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read policy rules: %w", err)
	}
	override, err := ParseRules(data)
	if err != nil {
		return Rules{}, err
	}
	merged := DefaultRules().Merge(override)
	return merged, merged.Validate()
}

// Entry is one row of a rule table.
type Entry struct {
	Action  Action `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Summary lists every rule ordered by action then code.
func (e *Engine) Summary() []Entry {
	var out []Entry
	add := func(a Action, tbl map[string]string) {
		for _, code := range slices.Sorted(maps.Keys(tbl)) {
			out = append(out, Entry{Action: a, Code: code, Message: tbl[code]})
		}
	}
	add(ActionFail, e.rules.Fail)
	add(ActionDegrade, e.rules.Degrade)
	add(ActionProceed, e.rules.Proceed)
	return out
}

// MaxDegrade returns the engine's DEGRADE threshold.
func (e *Engine) MaxDegrade() int {
	return e.rules.MaxDegrade
}
