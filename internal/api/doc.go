// Package api hosts the HTTP server, middleware and REST handlers. Routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawl to read a batch of sites synchronously.
//   - POST /v1/probe to guess feed locations under base URLs.
//   - GET /v1/crawls/{crawl_id}/attributes/{attribute} to project a saved corpus.
package api
