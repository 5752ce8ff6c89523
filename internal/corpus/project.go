package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// ErrUnknownAttribute is returned by Extract for an attribute outside the enum.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Attribute names a PageRecord field that Extract can read.
type Attribute string

// Extractable attributes.
const (
	AttrURL            Attribute = "url"
	AttrResolvedURL    Attribute = "resolved_url"
	AttrBaseDomain     Attribute = "base_domain"
	AttrText           Attribute = "text"
	AttrStatusCode     Attribute = "status_code"
	AttrFetchSucceeded Attribute = "fetch_succeeded"
	AttrLinks          Attribute = "links"
	AttrWordCount      Attribute = "word_count"
	AttrAboutLinks     Attribute = "about_links"
	AttrContentHash    Attribute = "content_hash"
)

func (a Attribute) value(r *crawler.PageRecord) (any, error) {
	switch a {
	case AttrURL:
		return r.URL, nil
	case AttrResolvedURL:
		return r.ResolvedURL, nil
	case AttrBaseDomain:
		return r.BaseDomain, nil
	case AttrText:
		return r.Text, nil
	case AttrStatusCode:
		return r.StatusCode, nil
	case AttrFetchSucceeded:
		return r.FetchSucceeded, nil
	case AttrLinks:
		return r.Links, nil
	case AttrWordCount:
		return len(strings.Fields(r.Text)), nil
	case AttrAboutLinks:
		return r.AboutLinks, nil
	case AttrContentHash:
		return r.ContentHash, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, string(a))
	}
}

// Extract maps every URL to attr of its record, or to sentinel when the task
// failed or the fetch did not succeed.
func (c *Corpus) Extract(attr Attribute, sentinel any) (map[string]any, error) {
	if _, err := attr.value(&crawler.PageRecord{}); err != nil {
		return nil, err
	}
	records := c.Records()
	out := make(map[string]any, len(records))
	for u, r := range records {
		if !r.Succeeded() {
			out[u] = sentinel
			continue
		}
		v, _ := attr.value(r)
		out[u] = v
	}
	return out, nil
}

// Project applies fn to every successful record on a bounded pool. Failed
// pages and failing calls map to sentinel; failures are logged.
func Project[T any](
	ctx context.Context,
	c *Corpus,
	concurrency int,
	fn func(*crawler.PageRecord) (T, error),
	sentinel T,
) map[string]T {
	records := c.Records()
	out := make(map[string]T, len(records))
	var mu sync.Mutex
	put := func(u string, v T) {
		mu.Lock()
		out[u] = v
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for u, r := range records {
		if !r.Succeeded() {
			put(u, sentinel)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				put(u, sentinel)
				return nil
			}
			v, err := fn(r)
			if err != nil {
				c.logger.Warn("projection failed", zap.String("url", u), zap.Error(err))
				v = sentinel
			}
			put(u, v)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Table is a merged tabular projection.
type Table struct {
	Columns []string
	Rows    []crawler.Row
}

// ProjectTable concatenates the rows fn produces for every successful record.
// Each row gets a url column; rows are ordered by url, then by position.
func ProjectTable(
	ctx context.Context,
	c *Corpus,
	concurrency int,
	fn func(*crawler.PageRecord) ([]crawler.Row, error),
) Table {
	perURL := Project(ctx, c, concurrency, fn, nil)
	urls := make([]string, 0, len(perURL))
	for u, rows := range perURL {
		if len(rows) > 0 {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)

	columns := map[string]struct{}{}
	var table Table
	for _, u := range urls {
		for _, row := range perURL[u] {
			tagged := make(crawler.Row, len(row)+1)
			for k, v := range row {
				tagged[k] = v
				columns[k] = struct{}{}
			}
			tagged["url"] = u
			table.Rows = append(table.Rows, tagged)
		}
	}
	delete(columns, "url")
	table.Columns = append(table.Columns, "url")
	rest := make([]string, 0, len(columns))
	for k := range columns {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	table.Columns = append(table.Columns, rest...)
	return table
}

// LinkRows returns a ProjectTable function emitting one {category, link} row
// per classified link. With no categories every category is included.
func LinkRows(categories ...crawler.Category) func(*crawler.PageRecord) ([]crawler.Row, error) {
	if len(categories) == 0 {
		categories = crawler.Categories
	}
	return func(r *crawler.PageRecord) ([]crawler.Row, error) {
		var rows []crawler.Row
		for _, c := range categories {
			for _, link := range r.Links.Get(c) {
				rows = append(rows, crawler.Row{"category": string(c), "link": link})
			}
		}
		return rows, nil
	}
}
