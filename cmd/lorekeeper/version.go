package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/lorekeeper/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lorekeeper %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
