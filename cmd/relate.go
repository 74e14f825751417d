package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
	"github.com/synap0/synap/internal/knowledge"
)

var flagRelateType string

var relateCmd = &cobra.Command{
	Use:   "relate <source-id> <target-id>",
	Short: "Create an explicit relationship between two content items",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runRelate(ctx, a, args[0], args[1])
		})
	},
}

func init() {
	relateCmd.Flags().StringVar(&flagRelateType, "type", knowledge.RelationReferences, "relationship type")
	rootCmd.AddCommand(relateCmd)
}

func runRelate(ctx context.Context, a *app.App, sourceID, targetID string) error {
	err := a.Indexer.CreateRelationship(ctx, flagUser, sourceID, targetID, flagRelateType, nil)
	if err != nil {
		return fmt.Errorf("creating relationship: %w", err)
	}
	fmt.Printf("related %s -> %s (%s)\n", sourceID, targetID, flagRelateType)
	return nil
}
