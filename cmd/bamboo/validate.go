package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [definition]",
	Short: "Check the process for structural errors",
	Long:  `Checks connectivity, start and end events, cycles, gateway pairing and branch conditions.`,
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
		if err := eng.Validate(cmd.Context(), tree); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Pipeline is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
