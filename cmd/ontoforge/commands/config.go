package commands

import (
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/config"
	"github.com/silvamed/ontoforge/errors"
)

// ConfigCmd shows or changes configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long: `Show the effective configuration or persist a setting.

Settings merge in order: defaults, user config (~/.ontoforge/config.toml),
project config (ontoforge.toml, found by walking up from the working
directory), then ONTOFORGE_* environment variables. "config set" writes to
the user config file and keeps a .back1 backup.

Examples:
  ontoforge config show
  ontoforge config set database.path /data/ontology.db
  ontoforge config set builder.fuzzy_match_threshold 0.65`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "load configuration")
		}

		enc := toml.NewEncoder(os.Stdout)
		enc.SetIndentTables(true)
		return enc.Encode(cfg)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting to the user config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], parseValue(args[1])); err != nil {
			return err
		}

		// Re-validate the merged result so a bad write is caught now,
		// not on the next command.
		if _, err := config.Load(); err != nil {
			return errors.Wrapf(err, "setting %s makes configuration invalid", args[0])
		}

		pterm.Success.Printf("Set %s = %s in %s", args[0], args[1], config.UserConfigPath())
		pterm.Println()
		return nil
	},
}

// parseValue coerces a CLI argument to the natural TOML type so numeric
// and boolean settings are not written as strings.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}
