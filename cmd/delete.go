package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a content item and its relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runDelete(ctx, a, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(ctx context.Context, a *app.App, contentID string) error {
	if err := a.Indexer.Delete(ctx, flagUser, contentID); err != nil {
		return fmt.Errorf("deleting %q: %w", contentID, err)
	}
	fmt.Printf("deleted %s\n", contentID)
	return nil
}
