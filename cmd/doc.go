// Package cmd defines the sitecorpus CLI.
//
// Architecture overview:
//   - Commands: crawl reads a batch of sites into a corpus, probe guesses feed
//     locations, feeds reads known feeds and keeps recent unseen posts, project
//     reads one attribute out of a saved corpus, and serve exposes the same
//     operations over HTTP (internal/api).
//   - Application container: internal/app builds every service once in the
//     root command's PersistentPreRunE from the Viper configuration and closes
//     it again in PersistentPostRun.
//   - Fetch pipeline: the Colly fetcher reads pages over HTTP. With headless
//     enabled, auto mode re-renders application shells in Chromedp when the
//     heuristic detector flags them. Each page then runs through text
//     extraction, link classification, blog feed search and the about merge.
//   - Persistence and fanout: page records go to the blob store
//     (memory/local/GCS), page and backlink rows to the row store
//     (memory/SQLite/Postgres), and one page event per successful page to
//     Pub/Sub when a topic is configured.
//
// Quick checklist:
//   - Configure via a YAML file (--config) or SITECORPUS_* env vars, e.g.
//     SITECORPUS_CRAWLER_CONCURRENCY, SITECORPUS_STORE_DRIVER,
//     SITECORPUS_STORE_DSN, SITECORPUS_BLOB_DRIVER, SITECORPUS_PUBSUB_ENABLED.
//   - Logs go to stderr; command results are JSON on stdout.
package cmd
