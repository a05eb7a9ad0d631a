package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/builder"
	"github.com/silvamed/ontoforge/logger"
	"github.com/silvamed/ontoforge/watch"
)

// WatchCmd watches a drop directory and ingests batch files as they land.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop directory and ingest batch files as they land",
	Long: `Watch a drop directory for candidate batch files (JSON or YAML) and
merge each one into the ontology as it appears. Files already in the
directory are ingested at startup. The snapshot is persisted after every
successful merge. Runs until interrupted.

The directory and debounce interval come from configuration
(watch.dir, watch.debounce_ms); --dir overrides the directory.

Examples:
  ontoforge watch
  ontoforge watch --dir incoming/`,
	RunE: runWatch,
}

func init() {
	WatchCmd.Flags().String("dir", "", "Drop directory to watch (overrides watch.dir)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = ws.cfg.Watch.Dir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	b := builder.New(ws.container, ws.cfg.Thresholds())
	handler := func(ctx context.Context, path string, batch builder.Batch) error {
		report, err := b.MergeBatch(ctx, batch)
		if err != nil {
			return err
		}
		renderMergeReport(path, report)
		return ws.save(ctx)
	}

	debounce := time.Duration(ws.cfg.Watch.DebounceMs) * time.Millisecond
	w, err := watch.New(dir, debounce, handler, logger.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	pterm.Info.Printf("Watching %s for batch files (Ctrl-C to stop)", dir)
	pterm.Println()

	<-ctx.Done()
	pterm.Println()
	pterm.Info.Println("Stopping watcher")
	return nil
}
