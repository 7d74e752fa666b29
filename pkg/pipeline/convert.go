package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	ferrors "github.com/matzehuels/folio/pkg/errors"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/manuscript"
	"github.com/matzehuels/folio/pkg/policy"
	"github.com/matzehuels/folio/pkg/schema"
)

// Converter turns a manuscript artifact into a complete LaTeX document.
// It holds no per-call state and may be shared between goroutines.
type Converter struct {
	Validator *schema.Validator
	Policy    *policy.Engine
	Assembler *latex.Assembler
	Logger    *log.Logger
}

// Conversion is the output of [Converter.Convert].
type Conversion struct {
	Document   *manuscript.Document
	Decision   policy.Decision
	MarkIssues []manuscript.MarkError
	Quality    []policy.Issue
	Params     latex.Params

	// Markup is the assembled body with placeholders; Source is the final
	// document handed to the typesetter.
	Markup string
	Source string
}

// NewConverter wires a converter from its parts. A nil logger discards output.
func NewConverter(v *schema.Validator, p *policy.Engine, a *latex.Assembler, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Converter{Validator: v, Policy: p, Assembler: a, Logger: logger}
}

// DefaultConverter uses the embedded schemas, the default policy rules and
// strict mark overlay.
func DefaultConverter(logger *log.Logger) (*Converter, error) {
	reg, err := schema.NewRegistry("")
	if err != nil {
		return nil, err
	}
	return NewConverter(
		schema.NewValidator(reg),
		policy.NewDefault(logger),
		latex.NewAssembler(latex.OverlayStrict, logger),
		logger,
	), nil
}

// Check validates data against the manuscript schema and decodes it.
func (c *Converter) Check(data []byte) (*manuscript.Document, error) {
	res := c.Validator.ValidateJSON(data, manuscript.ArtifactType, manuscript.SchemaVersion)
	if err := res.Err(); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeSchemaInvalid, "Invalid artifact: %s", res.Summary())
	}
	doc, err := manuscript.DecodeBytes(data)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeSchemaInvalid, err, "Invalid artifact")
	}
	return doc, nil
}

// Evaluate runs the warning policy over doc. A FAIL verdict is returned as
// a POLICY_FAIL error alongside the decision.
func (c *Converter) Evaluate(doc *manuscript.Document) (policy.Decision, error) {
	d := c.Policy.Evaluate(doc.Analysis.Warnings)
	if d.Failed() {
		return d, ferrors.New(ferrors.ErrCodePolicyFail, "%s", d.Reason)
	}
	return d, nil
}

// Convert validates, evaluates and renders a manuscript artifact.
//
// Invalid marks do not stop conversion; they are reported in MarkIssues and
// skipped by the overlay. An unknown trim size falls back to the default.
func (c *Converter) Convert(data []byte, params latex.Params) (*Conversion, error) {
	doc, err := c.Check(data)
	if err != nil {
		return nil, err
	}
	conv := &Conversion{Document: doc}

	conv.MarkIssues = doc.ValidateMarks()
	for _, issue := range conv.MarkIssues {
		c.Logger.Warn("invalid mark skipped", "path", issue.Path, "reason", issue.Message)
	}
	conv.Quality = policy.QualityIssues(doc.Analysis.Quality)
	for _, q := range conv.Quality {
		c.Logger.Warn("quality concern", "metric", q.Metric, "message", q.Message)
	}

	conv.Decision, err = c.Evaluate(doc)
	if err != nil {
		return conv, err
	}
	c.Logger.Info("policy decision", "action", conv.Decision.Action, "edge_cases", len(conv.Decision.Degradations))

	conv.Params = c.resolveParams(params)
	conv.Markup = c.Assembler.Assemble(doc.Content.Blocks, conv.Params, conv.Decision.Degraded())
	conv.Source, err = latex.Finalize(conv.Markup, conv.Params)
	if err != nil {
		return conv, ferrors.Wrap(ferrors.ErrCodeInternal, err, "finalize document")
	}
	return conv, nil
}

func (c *Converter) resolveParams(p latex.Params) latex.Params {
	p = p.WithDefaults()
	if _, err := latex.LookupTrimSize(p.TrimSize); err != nil {
		c.Logger.Warn("unknown trim size, using default", "trim_size", p.TrimSize, "default", latex.DefaultTrimSize)
		p.TrimSize = latex.DefaultTrimSize
	}
	return p
}
