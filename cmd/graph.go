package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the knowledge graph as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(runGraph)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(ctx context.Context, a *app.App) error {
	view, err := a.Indexer.GetGraph(ctx, flagUser)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}
