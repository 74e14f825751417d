package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
	"github.com/synap0/synap/internal/knowledge"
)

var (
	flagSearchLimit int
	flagSearchTypes []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find content similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runSearch(ctx, a, args[0])
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 5, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&flagSearchTypes, "type", nil, "restrict to content types")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(ctx context.Context, a *app.App, query string) error {
	var types []knowledge.ContentType
	for _, t := range flagSearchTypes {
		types = append(types, knowledge.ContentType(t))
	}

	results, err := a.Indexer.Search(ctx, flagUser, query, flagSearchLimit, types...)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for _, r := range results {
		label := r.Metadata["title"]
		if label == "" {
			label = r.ContentID
		}
		fmt.Printf("%.4f  %-10s %s\n", r.Score, r.ContentType, label)
	}
	return nil
}
