package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitecorpus/internal/app"
	"github.com/JakeFAU/sitecorpus/internal/clock/system"
)

func newFeedsCmd() *cobra.Command {
	var (
		file      string
		days      int
		maxPerDay float64
		asOf      string
		store     bool
	)
	cmd := &cobra.Command{
		Use:   "feeds [feed-url...]",
		Short: "Reads feeds and keeps recent posts not stored yet",
		Long: `Reads every feed, keeps the posts of the last --days days, drops feeds
that publish --max-per-day posts per day or more, skips posts whose URL is
already in the pages table and prints the rest newest first. With --store
they are inserted into the entries table. The report carries per-feed
posting statistics: entry count, base URL, median and mean days between
posts and the latest post date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			urls, err := collectURLs(args, file)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no feed urls given")
			}
			var now time.Time
			if asOf != "" {
				clk, err := system.ParseAsOf(asOf)
				if err != nil {
					return fmt.Errorf("parse --as-of: %w", err)
				}
				now = clk.Now()
			}

			entries, report, err := appInstance.RefreshFeeds(cmd.Context(), app.FeedsRequest{
				URLs:      urls,
				Days:      days,
				MaxPerDay: maxPerDay,
				Now:       now,
				Store:     store,
			})
			if err != nil {
				return fmt.Errorf("refresh feeds: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"report": report, "entries": entries})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&file, "file", "", "read feed URLs from this file, one per line")
	flags.IntVar(&days, "days", 0, "recency window in days (default: feed.recent_days)")
	flags.Float64Var(&maxPerDay, "max-per-day", 0, "drop feeds posting this often (default: feed.max_per_day)")
	flags.StringVar(&asOf, "as-of", "", "evaluate recency as of this date (YYYY-MM-DD)")
	flags.BoolVar(&store, "store", false, "insert the fresh entries into the entries table")
	return cmd
}
