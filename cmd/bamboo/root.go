package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/logging"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/definition"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bamboo",
	Short: "Bamboo compiles process definitions into pipeline trees",
	Long: `Bamboo validates process graphs, assigns execution tokens and answers
main-line and rollback queries for a compiled pipeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().Bool("cycle-tolerate", false, "Reverse back-edges instead of rejecting cyclic processes")
	rootCmd.PersistentFlags().String("tree", "", "Read a compiled tree (JSON) instead of a definition file")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return logging.NewWithFormat(logging.ParseLevel(level), format, cmd.ErrOrStderr())
}

func newEngine(cmd *cobra.Command, opts ...bamboo.Option) (*bamboo.Engine, error) {
	tolerate, _ := cmd.Flags().GetBool("cycle-tolerate")
	base := []bamboo.Option{
		bamboo.WithLogger(newLogger(cmd)),
		bamboo.WithCycleTolerance(tolerate),
	}
	return bamboo.New(append(base, opts...)...)
}

// loadTree reads the tree named on the command line: either a definition file
// given as the first argument or a tree document given with --tree.
func loadTree(cmd *cobra.Command, args []string) (*domain.Tree, error) {
	if path, _ := cmd.Flags().GetString("tree"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var tree domain.Tree
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to decode tree %s: %w", path, err)
		}
		return &tree, nil
	}
	if len(args) == 0 {
		return nil, errors.New("a definition file or --tree is required")
	}
	def, err := definition.LoadFile(args[0])
	if err != nil {
		return nil, err
	}
	return def.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
