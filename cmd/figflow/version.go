package main

import (
	"fmt"

	"github.com/aretw0/figflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of figflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "figflow version %s\n", figflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
