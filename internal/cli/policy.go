package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/pkg/manuscript"
	"github.com/matzehuels/folio/pkg/policy"
)

// policyCommand creates the policy command, which prints the active rule
// table, and its eval subcommand.
func (c *CLI) policyCommand() *cobra.Command {
	var rules string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show the warning policy rules",
		Long: `Policy prints the rules that map analysis warning codes to a processing
decision: FAIL stops processing, DEGRADE renders with fallback markup and
PROCEED is informational. Rules can be overridden with a YAML file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.policyEngine(rules)
			if err != nil {
				return err
			}
			printRuleTable(engine)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&rules, "rules", "", "policy rules file (YAML)")
	cmd.AddCommand(c.policyEvalCommand(&rules))

	return cmd
}

// policyEvalCommand creates the "policy eval" subcommand.
func (c *CLI) policyEvalCommand(rules *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval <manuscript.json>",
		Short: "Evaluate a manuscript's warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			doc, err := manuscript.DecodeBytes(data)
			if err != nil {
				return err
			}
			engine, err := c.policyEngine(*rules)
			if err != nil {
				return err
			}
			d := engine.Evaluate(doc.Analysis.Warnings)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			printDecision(d.Action, d.Reason, d.Degradations)
			for _, q := range policy.QualityIssues(doc.Analysis.Quality) {
				printDetail("%s: %s", q.Metric, q.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")
	return cmd
}

func (c *CLI) policyEngine(rules string) (*policy.Engine, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, err
	}
	return c.newPolicy(cfg, rules)
}

// printRuleTable renders the engine's rules as a table.
func printRuleTable(e *policy.Engine) {
	entries := e.Summary()
	rows := make([][]string, 0, len(entries))
	for _, en := range entries {
		rows = append(rows, []string{string(en.Action), en.Code, en.Message})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Action", "Code", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			style := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 && row < len(rows) {
				return style.Inherit(actionStyle(policy.Action(rows[row][0])))
			}
			return style
		})

	fmt.Println(t)
	printDetail("At most %d DEGRADE warnings are tolerated", e.MaxDegrade())
}

// actionStyle colors a policy action.
func actionStyle(a policy.Action) lipgloss.Style {
	switch a {
	case policy.ActionFail:
		return styleIconError
	case policy.ActionDegrade:
		return StyleWarning
	default:
		return StyleSuccess
	}
}

// printDecision prints a policy decision and its messages.
func printDecision(a policy.Action, reason string, degradations []string) {
	switch a {
	case policy.ActionFail:
		printError("%s %s", actionStyle(a).Render(string(a)), reason)
	case policy.ActionDegrade:
		printWarning("%s (%d edge cases)", a, len(degradations))
	default:
		printSuccess("%s", actionStyle(a).Render(string(a)))
	}
	for _, d := range degradations {
		printDetail("%s", d)
	}
}
