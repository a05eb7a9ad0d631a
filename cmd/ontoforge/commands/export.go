package commands

import (
	"encoding/json"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/ontology"
)

// ExportCmd dumps the ontology snapshot as JSON.
var ExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Dump the ontology snapshot as JSON",
	Long: `Write the full ontology snapshot to a file, or to stdout when no file
is given. The dump is ordered by creation time, removed items included, and
round-trips through restore: importing it replays every invariant check.

Examples:
  ontoforge export                    # To stdout
  ontoforge export ontology.json      # To a file
  ontoforge import ontology.json      # Restore into an empty database`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

// ImportCmd restores a snapshot dump into an empty ontology.
var ImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a snapshot dump into an empty ontology",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	snap := ws.container.Snapshot()

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return errors.Wrapf(err, "create %s", args[0])
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	if len(args) == 1 {
		pterm.Success.Printf("Exported %d entities and %d relationships to %s",
			len(snap.Entities), len(snap.Relationships), args[0])
		pterm.Println()
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	if stats := ws.container.Statistics(); stats.TotalEntities > 0 {
		return errors.New("import requires an empty ontology; purge or use a fresh database")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "read %s", args[0])
	}

	var imported ontology.Snapshot
	if err := json.Unmarshal(data, &imported); err != nil {
		return errors.Wrapf(err, "decode snapshot %s", args[0])
	}

	if err := ws.container.Restore(&imported); err != nil {
		return errors.Wrap(err, "restore snapshot")
	}
	if err := ws.save(ctx); err != nil {
		return err
	}

	pterm.Success.Printf("Imported %d entities and %d relationships",
		len(imported.Entities), len(imported.Relationships))
	pterm.Println()
	return nil
}
