package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
	"github.com/synap0/synap/internal/knowledge"
)

var (
	flagIngestType  string
	flagIngestTitle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <id> [text]",
	Short: "Index a piece of content",
	Long: `Ingest embeds the given text, stores it under the content id, and
links it to its most similar neighbors. When no text argument is given,
the content is read from stdin:

  cat notes.txt | synap ingest note-42 --type note --title "Meeting notes"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runIngest(ctx, a, args)
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&flagIngestType, "type", "note", "content type: document, note or url")
	ingestCmd.Flags().StringVar(&flagIngestTitle, "title", "", "title stored in the item metadata")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, a *app.App, args []string) error {
	var content string
	if len(args) == 2 {
		content = args[1]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content given")
	}

	metadata := map[string]string{}
	if flagIngestTitle != "" {
		metadata["title"] = flagIngestTitle
	}

	item := knowledge.ContentItem{
		ID:       args[0],
		Type:     knowledge.ContentType(flagIngestType),
		Content:  content,
		Metadata: metadata,
	}
	if err := a.Indexer.Ingest(ctx, flagUser, item); err != nil {
		return fmt.Errorf("ingesting %q: %w", item.ID, err)
	}

	fmt.Printf("indexed %s\n", item.ID)
	return nil
}
