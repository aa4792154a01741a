package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags "-X opsdash/cmd.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the opsdash version",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args
		fmt.Printf("opsdash %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
