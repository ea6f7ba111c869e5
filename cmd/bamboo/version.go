package main

import (
	"fmt"
	"strings"

	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bamboo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bamboo version %s\n", strings.TrimSpace(bamboo.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
