package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitecorpus/internal/corpus"
	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func newProjectCmd() *cobra.Command {
	var (
		crawlID string
		attr    string
		links   []string
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Reads one attribute or a link table out of a saved corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if crawlID == "" {
				return fmt.Errorf("--crawl-id is required")
			}
			c, err := appInstance.LoadSnapshot(cmd.Context(), crawlID)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("links") {
				categories := make([]crawler.Category, 0, len(links))
				for _, l := range links {
					categories = append(categories, crawler.Category(l))
				}
				concurrency := appInstance.Config().Crawler.Concurrency
				table := corpus.ProjectTable(cmd.Context(), c, concurrency, corpus.LinkRows(categories...))
				return writeJSON(cmd.OutOrStdout(), map[string]any{"columns": table.Columns, "rows": table.Rows})
			}

			values, err := c.Extract(corpus.Attribute(attr), nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"crawl_id": c.CrawlID(), "values": values})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&crawlID, "crawl-id", "", "id of a crawl saved with --snapshot")
	flags.StringVar(&attr, "attr", "text", "attribute to read per URL")
	flags.StringSliceVar(&links, "links", nil, "print a link table for these categories instead (empty for all)")
	return cmd
}
