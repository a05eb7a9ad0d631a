package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/cmd/ontoforge/commands"
	"github.com/silvamed/ontoforge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ontoforge",
	Short: "ontoforge - Medical device ontology core",
	Long: `ontoforge - Knowledge graph for medical device service documentation.

ontoforge maintains a typed ontology of medical devices (System > Subsystem >
Component > SparePart), merges raw extraction candidates into it with
duplicate detection, validates the graph against structural and domain rules,
and tracks expert review of every entity and relationship.

Available commands:
  ingest   - Merge candidate batch files into the ontology
  validate - Run the validation rule pipeline and report a quality score
  stats    - Show ontology statistics
  export   - Dump the ontology snapshot as JSON
  review   - Apply expert review actions
  db       - Manage the ontology database
  watch    - Watch a drop directory and ingest batch files as they land
  config   - Show or change configuration

Examples:
  ontoforge ingest extraction-pass1.json   # Merge one batch
  ontoforge validate                       # Score the current graph
  ontoforge review approve ent-42 --expert alice@clinic --comment "verified"
  ontoforge watch                          # Ingest drops continuously`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.ReviewCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
