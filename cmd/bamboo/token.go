package main

import (
	httpAdapter "github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [definition]",
	Short: "Print the token of every node",
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
		result, err := eng.Tokens(cmd.Context(), tree)
		if err != nil {
			return err
		}
		unterminated := result.Unterminated
		if unterminated == nil {
			unterminated = []string{}
		}
		return printJSON(cmd.OutOrStdout(), httpAdapter.TokenResponse{Tokens: result.Tokens, Unterminated: unterminated})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
