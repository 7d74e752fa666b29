package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/pkg/manuscript"
	"github.com/matzehuels/folio/pkg/schema"
)

// validateReport is the JSON form of the validate command's output.
type validateReport struct {
	Valid      bool                   `json:"valid"`
	Errors     []schema.FieldError    `json:"errors"`
	MarkIssues []manuscript.MarkError `json:"mark_issues,omitempty"`
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		asJSON     bool
		schemasDir string
	)

	cmd := &cobra.Command{
		Use:   "validate <manuscript.json>",
		Short: "Check a manuscript against its schema",
		Long: `Validate checks a manuscript artifact against the manuscript schema and
reports marks whose offsets fall outside their block. Schema errors make the
command fail; mark issues are warnings, since conversion skips such marks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			reg, err := schema.NewRegistry(schemasDir)
			if err != nil {
				return err
			}
			report := validateManuscript(schema.NewValidator(reg), data)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printValidation(args[0], report)
			}
			if !report.Valid {
				return fmt.Errorf("%s: %d validation error(s)", args[0], len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&schemasDir, "schemas", "", "directory of additional schema files")

	return cmd
}

// validateManuscript runs the schema check and, for a valid document, the
// mark range check.
func validateManuscript(v *schema.Validator, data []byte) validateReport {
	res := v.ValidateJSON(data, manuscript.ArtifactType, manuscript.SchemaVersion)
	report := validateReport{Valid: res.Valid, Errors: res.Errors}
	if !res.Valid {
		return report
	}
	if doc, err := manuscript.DecodeBytes(data); err == nil {
		report.MarkIssues = doc.ValidateMarks()
	}
	return report
}

func printValidation(name string, r validateReport) {
	if !r.Valid {
		printError("%s is invalid", name)
		for _, e := range r.Errors {
			printKeyValue(e.Path, e.Message)
		}
		return
	}
	printSuccess("%s is a valid %s v%s artifact", name, manuscript.ArtifactType, manuscript.SchemaVersion)
	for _, m := range r.MarkIssues {
		printWarning("%s", m.Error())
	}
}
