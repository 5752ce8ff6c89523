package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// RowStore implements crawler.URLStore and crawler.RowWriter over maps.
type RowStore struct {
	mu        sync.RWMutex
	urlColumn string
	tables    map[string][]crawler.Row
}

// NewRowStore constructs a RowStore keyed on the url column.
func NewRowStore() *RowStore {
	return &RowStore{urlColumn: "url", tables: make(map[string][]crawler.Row)}
}

// InsertRows appends copies of rows to table.
func (s *RowStore) InsertRows(_ context.Context, table string, rows []crawler.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		clone := make(crawler.Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		s.tables[table] = append(s.tables[table], clone)
	}
	return int64(len(rows)), nil
}

// URLsAlreadyStored returns the subset of urls present in table, sorted.
func (s *RowStore) URLsAlreadyStored(_ context.Context, table string, urls []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := make(map[string]struct{})
	for _, row := range s.tables[table] {
		if u, ok := row[s.urlColumn].(string); ok {
			stored[u] = struct{}{}
		}
	}
	var out []string
	for _, u := range urls {
		if _, ok := stored[u]; ok {
			out = append(out, u)
		}
	}
	return crawler.SortedUnique(out), nil
}

// Rows returns the rows of table.
func (s *RowStore) Rows(table string) []crawler.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]crawler.Row(nil), s.tables[table]...)
}
