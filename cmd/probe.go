package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "probe [base-url...]",
		Short: "Guesses feed locations under base URLs",
		Long: `Tries the conventional feed paths (index.xml, feed/, feed.xml, rss/ by
default) under every base URL and prints the ones that parse as a feed with
at least one entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			bases, err := collectURLs(args, file)
			if err != nil {
				return err
			}
			if len(bases) == 0 {
				return fmt.Errorf("no base urls given")
			}
			feeds := appInstance.ProbeFeeds(cmd.Context(), bases)
			if feeds == nil {
				feeds = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), map[string][]string{"feeds": feeds})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read base URLs from this file, one per line")
	return cmd
}
