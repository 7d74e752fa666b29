// Package policy decides whether a manuscript can be typeset, and how.
//
// The upstream analysis stage attaches coded warnings to every manuscript.
// [Engine.Evaluate] classifies them against three rule tables and returns a
// [Decision]:
//
//   - FAIL: the manuscript contains something the typesetter cannot
//     represent (images, tables). Processing stops.
//   - DEGRADE: each matching warning is tolerable with simplified markup.
//     More than [DefaultMaxDegrade] of them at once is treated as FAIL.
//   - PROCEED: informational only.
//
// Rule tables are plain data. New codes are added to [DefaultRules] or to a
// rules file loaded with [LoadRules]; the evaluation algorithm never changes.
package policy

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/folio/pkg/manuscript"
)

// Action is the verdict of a policy evaluation.
type Action string

// Policy actions.
const (
	ActionFail    Action = "FAIL"
	ActionDegrade Action = "DEGRADE"
	ActionProceed Action = "PROCEED"
)

// Decision is the immutable result of evaluating a warning set.
type Decision struct {
	Action       Action   `json:"action"`
	Reason       string   `json:"reason,omitempty"`
	Degradations []string `json:"degradations"`
}

// Degraded reports whether rendering should use fallback markup.
func (d Decision) Degraded() bool { return d.Action == ActionDegrade }

// Failed reports whether processing must stop.
func (d Decision) Failed() bool { return d.Action == ActionFail }

// Engine evaluates warnings against a rule set.
type Engine struct {
	rules  Rules
	logger *log.Logger
}

// New creates an engine for rules. A nil logger discards output.
func New(rules Rules, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{rules: rules, logger: logger}
}

// NewDefault creates an engine with [DefaultRules].
func NewDefault(logger *log.Logger) *Engine {
	return New(DefaultRules(), logger)
}

// Rules returns a copy of the engine's rule set.
func (e *Engine) Rules() Rules {
	return e.rules.clone()
}

// Evaluate classifies warnings and returns the processing decision.
//
// FAIL rules dominate: once any FAIL code is present the DEGRADE and PROCEED
// tables are not consulted. Messages keep the input order of the warnings.
// Codes that match no table are logged and otherwise ignored.
func (e *Engine) Evaluate(warnings []manuscript.Warning) Decision {
	if len(warnings) == 0 {
		return Decision{Action: ActionProceed, Degradations: []string{}}
	}

	var failures []string
	for _, w := range warnings {
		if msg, ok := e.rules.Fail[w.Code]; ok {
			failures = append(failures, msg)
		}
	}
	if len(failures) > 0 {
		d := Decision{
			Action:       ActionFail,
			Reason:       "Cannot process: " + strings.Join(failures, ", "),
			Degradations: []string{},
		}
		e.logger.Error("policy rejected manuscript", "reason", d.Reason)
		return d
	}

	degradations := []string{}
	for _, w := range warnings {
		if msg, ok := e.rules.Degrade[w.Code]; ok {
			degradations = append(degradations, msg)
			continue
		}
		if msg, ok := e.rules.Proceed[w.Code]; ok {
			e.logger.Info("informational warning", "code", w.Code, "message", msg)
			continue
		}
		e.logger.Warn("unknown warning code", "code", w.Code)
	}

	if n := len(degradations); n > e.rules.MaxDegrade {
		d := Decision{
			Action:       ActionFail,
			Reason:       fmt.Sprintf("Too many edge cases (%d warnings) - quality would be poor", n),
			Degradations: []string{},
		}
		e.logger.Error("policy rejected manuscript", "reason", d.Reason)
		return d
	} else if n > 0 {
		e.logger.Warn("degraded rendering", "edge_cases", n)
		return Decision{
			Action:       ActionDegrade,
			Reason:       fmt.Sprintf("%d edge cases detected", n),
			Degradations: degradations,
		}
	}

	return Decision{Action: ActionProceed, Degradations: []string{}}
}
