package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drinks",
	Short: "The drinks service, a menu of drinks with recipes behind an auth0 login.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
