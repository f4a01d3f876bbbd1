package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/drinks/core/backend"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), backend.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
