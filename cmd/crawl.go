package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitecorpus/internal/app"
	"github.com/JakeFAU/sitecorpus/internal/corpus"
	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

type crawlFlags struct {
	file        string
	crawlID     string
	concurrency int
	mode        string
	blogSearch  bool
	aboutSearch bool
	joinChar    string
	filterNew   bool
	store       bool
	snapshot    bool
	attr        string
}

func newCrawlCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Reads a batch of sites into a corpus",
		Long: `Fetches every URL concurrently, extracts its text, classifies its links
and searches blog pages for feeds. The corpus is printed as JSON and can be
stored as rows, filtered against earlier crawls and saved as a snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, args, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.file, "file", "", "read URLs from this file, one per line")
	flags.StringVar(&f.crawlID, "crawl-id", "", "crawl id (default: a new UUIDv7)")
	flags.IntVar(&f.concurrency, "concurrency", 0, "worker pool size (default: crawler.concurrency)")
	flags.StringVar(&f.mode, "mode", "", "fetch mode: http, headless or auto (default: crawler.mode)")
	flags.BoolVar(&f.blogSearch, "blog-search", true, "follow blog links to find feeds")
	flags.BoolVar(&f.aboutSearch, "about-search", false, "prepend the about page text")
	flags.StringVar(&f.joinChar, "join-char", " ", "separator between extracted text blocks")
	flags.BoolVar(&f.filterNew, "filter-new", false, "drop pages already in the pages table")
	flags.BoolVar(&f.store, "store", false, "insert page and backlink rows into the row store")
	flags.BoolVar(&f.snapshot, "snapshot", false, "save the corpus to the blob store")
	flags.StringVar(&f.attr, "attr", "", "print only this attribute per URL (e.g. text, links, word_count)")
	return cmd
}

func runCrawl(cmd *cobra.Command, args []string, f crawlFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	urls, err := collectURLs(args, f.file)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no urls given")
	}

	siteCfg := appInstance.SiteConfig()
	flags := cmd.Flags()
	if f.mode != "" {
		mode, err := crawler.ParseMode(f.mode)
		if err != nil {
			return err
		}
		siteCfg.Mode = mode
	}
	if flags.Changed("blog-search") {
		siteCfg.BlogSearch = f.blogSearch
	}
	if flags.Changed("about-search") {
		siteCfg.AboutSearch = f.aboutSearch
	}
	if flags.Changed("join-char") {
		siteCfg.JoinChar = f.joinChar
	}

	result, report, err := appInstance.Crawl(cmd.Context(), app.CrawlRequest{
		URLs:        urls,
		CrawlID:     f.crawlID,
		Concurrency: f.concurrency,
		Site:        siteCfg,
		FilterNew:   f.filterNew,
		Store:       f.store,
		Snapshot:    f.snapshot,
	})
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	if f.attr != "" {
		values, err := result.Extract(corpus.Attribute(f.attr), nil)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"crawl_id": report.CrawlID, "values": values})
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{"report": report, "pages": result.Records()})
}
