package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/validate"
)

// ValidateCmd runs the validation rule pipeline.
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the validation rule pipeline and report a quality score",
	Long: `Run the full validation pipeline over the ontology.

Rules run in order: structural (containment and endpoint integrity),
semantic (labels, part numbers), consistency (relationship algebra, review
trails), completeness (expected-subsystem checklist) and domain rules.
The report carries every issue with a rule id and severity, and an overall
quality score from 0 to 100.

Examples:
  ontoforge validate
  ontoforge validate --json          # Machine-readable report
  ontoforge validate --fail-on-error # Exit non-zero when errors are found`,
	RunE: runValidate,
}

func init() {
	ValidateCmd.Flags().Bool("json", false, "Output the report as JSON")
	ValidateCmd.Flags().Bool("fail-on-error", false, "Exit with an error when error-severity issues exist")
}

func runValidate(cmd *cobra.Command, args []string) error {
	useJSON, _ := cmd.Flags().GetBool("json")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	ctx := cmd.Context()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	v := validate.New(ws.cfg.Weights(), ws.cfg.Checklist())
	report, err := v.Run(ctx, ws.container)
	if err != nil {
		return err
	}

	if useJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		renderValidationReport(report)
	}

	if failOnError && !report.Valid() {
		return fmt.Errorf("validation found %d errors", report.Errors)
	}
	return nil
}

func renderValidationReport(report *validate.Report) {
	pterm.DefaultHeader.WithFullWidth().Printf("Ontology Validation")
	pterm.Println()

	pterm.Printf("  Entities checked:  %d\n", report.Entities)
	pterm.Printf("  Errors:            %d\n", report.Errors)
	pterm.Printf("  Warnings:          %d\n", report.Warnings)
	pterm.Printf("  Suggestions:       %d\n", report.Infos)
	pterm.Println()

	if len(report.Issues) > 0 {
		data := pterm.TableData{{"Rule", "Severity", "Item", "Message"}}
		for _, issue := range report.Issues {
			item := issue.EntityID
			if item == "" {
				item = issue.RelationshipID
			}
			data = append(data, []string{issue.RuleID, string(issue.Severity), item, issue.Message})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		pterm.Println()
	}

	switch {
	case report.Valid() && report.Warnings == 0:
		pterm.Success.Printf("Score: %.1f / 100", report.Score)
	case report.Valid():
		pterm.Warning.Printf("Score: %.1f / 100", report.Score)
	default:
		pterm.Error.Printf("Score: %.1f / 100", report.Score)
	}
	pterm.Println()
}
