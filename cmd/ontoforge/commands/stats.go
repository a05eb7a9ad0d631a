package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/ontology"
)

// StatsCmd shows ontology statistics.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ontology statistics",
	Long: `Display counts by entity kind, relationship type and validation status,
plus the average confidence over the non-removed population.

Examples:
  ontoforge stats
  ontoforge stats --json`,
	RunE: runStats,
}

func init() {
	StatsCmd.Flags().Bool("json", false, "Output statistics as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	useJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	stats := ws.container.Statistics()

	if useJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	pterm.DefaultHeader.WithFullWidth().Printf("Ontology Statistics")
	pterm.Println()

	pterm.Printf("  Database:            %s\n", ws.cfg.Database.Path)
	pterm.Printf("  Entities:            %d\n", stats.TotalEntities)
	pterm.Printf("  Relationships:       %d\n", stats.TotalRelationships)
	pterm.Printf("  Removed entities:    %d\n", stats.RemovedEntities)
	pterm.Printf("  Average confidence:  %.2f\n", stats.AverageConfidence)
	pterm.Println()

	if len(stats.EntitiesByKind) > 0 {
		data := pterm.TableData{{"Kind", "Count"}}
		for _, kind := range ontology.Kinds {
			if n := stats.EntitiesByKind[kind]; n > 0 {
				data = append(data, []string{string(kind), fmt.Sprintf("%d", n)})
			}
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		pterm.Println()
	}

	if len(stats.StatusHistogram) > 0 {
		data := pterm.TableData{{"Status", "Count"}}
		for _, status := range ontology.Statuses {
			if n := stats.StatusHistogram[status]; n > 0 {
				data = append(data, []string{string(status), fmt.Sprintf("%d", n)})
			}
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	return nil
}
