package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/version"
)

// VersionCmd prints version and build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		useJSON, _ := cmd.Flags().GetBool("json")

		info := version.Get()
		if useJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Println(info.String())
		fmt.Printf("  go:       %s\n", info.GoVersion)
		fmt.Printf("  platform: %s\n", info.Platform)
		return nil
	},
}

func init() {
	VersionCmd.Flags().Bool("json", false, "Output version information as JSON")
}
