package main

import (
	"fmt"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [definition]",
	Short: "Export the process graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the process. With --overlay the nodes
execution may start from are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withOverlay, _ := cmd.Flags().GetBool("overlay")
		current, _ := cmd.Flags().GetString("current")

		tree, err := loadTree(cmd, args)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if withOverlay || current != "" {
			overlay = &graph.GraphOverlay{CurrentNode: current}
		}
		if withOverlay {
			eng, err := newEngine(cmd)
			if err != nil {
				return err
			}
			if overlay.AllowedStartNodes, err = eng.AllowedStartNodes(cmd.Context(), tree); err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("overlay", false, "Highlight the allowed start nodes")
	graphCmd.Flags().String("current", "", "Highlight the node execution is currently at")
}
