package main

import (
	"github.com/spf13/cobra"
)

var startsCmd = &cobra.Command{
	Use:   "starts [definition]",
	Short: "List the nodes execution may start from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadTree(cmd, args)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		ids, err := eng.AllowedStartNodes(cmd.Context(), tree)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string][]string{"allowed": ids})
	},
}

var skippedCmd = &cobra.Command{
	Use:   "skipped [definition]",
	Short: "List the nodes bypassed when starting from --from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")

		tree, err := loadTree(cmd, args)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		ids, err := eng.SkippedNodes(cmd.Context(), tree, from)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string][]string{"skipped": ids})
	},
}

func init() {
	rootCmd.AddCommand(startsCmd)
	rootCmd.AddCommand(skippedCmd)

	skippedCmd.Flags().String("from", "", "Node execution starts from")
	_ = skippedCmd.MarkFlagRequired("from")
}
