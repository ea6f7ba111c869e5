package main

import (
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [definition]",
	Short: "Compile a process into a pipeline",
	Long: `Validates the process, assigns tokens and prints the compiled pipeline as JSON.
With --redis-addr the pipeline is also saved to Redis.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadTree(cmd, args)
		if err != nil {
			return err
		}

		opts, closeStore := storeOptions(cmd)
		defer closeStore()

		eng, err := newEngine(cmd, opts...)
		if err != nil {
			return err
		}
		pipeline, err := eng.CompileTree(cmd.Context(), tree)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pipeline)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addStoreFlags(buildCmd)
}
