package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/config"
	"github.com/silvamed/ontoforge/db"
	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/logger"
)

// DbCmd manages the ontology database.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the ontology database",
	Long: `Manage database operations.

Examples:
  ontoforge db migrate   # Apply pending schema migrations
  ontoforge db purge     # Physically delete logically removed items`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "load configuration")
		}

		database, err := db.Open(cfg.Database.Path, logger.Logger)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(database, logger.Logger); err != nil {
			return err
		}

		pterm.Success.Printf("Database migrated: %s", cfg.Database.Path)
		pterm.Println()
		return nil
	},
}

var dbPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Physically delete logically removed items",
	Long: `Physically delete entities and relationships previously removed
logically. A removed entity survives the purge while a live descendant
still depends on it; edges touching a purged entity go with it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ws, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer ws.Close()

		entities, relationships := ws.container.Purge()
		if err := ws.save(ctx); err != nil {
			return err
		}

		pterm.Success.Printf("Purged %d entities and %d relationships", entities, relationships)
		pterm.Println()
		return nil
	},
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbPurgeCmd)
}
