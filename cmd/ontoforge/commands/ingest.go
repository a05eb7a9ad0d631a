package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/builder"
	"github.com/silvamed/ontoforge/watch"
)

// IngestCmd merges candidate batch files into the ontology.
var IngestCmd = &cobra.Command{
	Use:   "ingest <batch-file>...",
	Short: "Merge candidate batch files into the ontology",
	Long: `Merge one or more candidate batch files into the ontology.

Batch files are JSON or YAML and hold the raw entities and relationships of
one extraction pass. Candidates are normalized, resolved against the existing
graph (exact and fuzzy label matching, part-number matching) and merged or
created. Nothing is silently dropped: rejected candidates and unresolved
orphans land in the merge report.

Examples:
  ontoforge ingest extraction-pass1.json
  ontoforge ingest pass1.json pass2.yaml     # Several passes in one run
  ontoforge ingest pass1.json --dry-run      # Report without persisting`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	IngestCmd.Flags().Bool("dry-run", false, "Merge in memory and report, without persisting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	b := builder.New(ws.container, ws.cfg.Thresholds())

	if dryRun {
		pterm.Warning.Println("DRY RUN MODE: nothing will be persisted")
		pterm.Println()
	}

	for _, path := range args {
		batch, err := watch.LoadBatch(path)
		if err != nil {
			return err
		}

		report, err := b.MergeBatch(ctx, batch)
		if err != nil {
			return err
		}

		renderMergeReport(path, report)
	}

	if dryRun {
		return nil
	}
	return ws.save(ctx)
}

func renderMergeReport(path string, report *builder.Report) {
	pterm.DefaultSection.Printf("Batch %s", path)

	pterm.Printf("  Created:           %d\n", report.Created)
	pterm.Printf("  Merged:            %d (%d tentative)\n", report.Merged, report.TentativeMerges)
	pterm.Printf("  Rejected:          %d\n", report.Rejected)
	pterm.Printf("  Processing time:   %s\n", report.EndTime.Sub(report.StartTime).Round(time.Millisecond))
	pterm.Println()

	if len(report.Errors) > 0 {
		data := pterm.TableData{{"Code", "Candidate", "Message"}}
		for _, e := range report.Errors {
			data = append(data, []string{e.Code, e.Label, e.Message})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		pterm.Println()
	}

	if len(report.UnresolvedOrphans) > 0 {
		pterm.Warning.Println("Unresolved orphans (parent hint matched nothing):")
		for _, label := range report.UnresolvedOrphans {
			pterm.Printf("  - %s\n", label)
		}
		pterm.Println()
	}

	if len(report.PendingReview) > 0 {
		pterm.Info.Printf("%d entities queued for expert review (lowest confidence first):\n", len(report.PendingReview))
		data := pterm.TableData{{"ID", "Label", "Confidence"}}
		for _, item := range report.PendingReview {
			data = append(data, []string{item.ID, item.Label, fmt.Sprintf("%.2f", item.Confidence)})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		pterm.Println()
	}
}
