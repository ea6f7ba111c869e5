package main

import (
	httpAdapter "github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [definition]",
	Short: "Print the rollback graph between two nodes",
	Long: `Builds the graph of service activities replayed when rolling back from --from
to --to and prints it as {nodes, flows, others}.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		tree, err := loadTree(cmd, args)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		g, others, err := eng.RollbackGraph(cmd.Context(), tree, from, to)
		if err != nil {
			return err
		}
		if others == nil {
			others = []string{}
		}
		view := g.AsView()
		return printJSON(cmd.OutOrStdout(), httpAdapter.RollbackResponse{Nodes: view.Nodes, Flows: view.Flows, Others: others})
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().String("from", "", "Node the rollback starts from")
	rollbackCmd.Flags().String("to", "", "Node the rollback returns to")
	_ = rollbackCmd.MarkFlagRequired("from")
	_ = rollbackCmd.MarkFlagRequired("to")
}
