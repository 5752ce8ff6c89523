// Package postgres implements the URL and row persistence ports on Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	URLColumn       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Close()
}

// Store implements crawler.URLStore and crawler.RowWriter.
type Store struct {
	pool      pool
	urlColumn string
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.URLColumn)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, urlColumn string) (*Store, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if urlColumn == "" {
		urlColumn = "url"
	}
	if !validIdentifier.MatchString(urlColumn) {
		return nil, fmt.Errorf("invalid column name %q", urlColumn)
	}
	return &Store{pool: p, urlColumn: urlColumn}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// URLsAlreadyStored returns the members of urls found in table, sorted.
func (s *Store) URLsAlreadyStored(ctx context.Context, table string, urls []string) ([]string, error) {
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(urls) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s = ANY($1)`, s.urlColumn, table)
	rows, err := s.pool.Query(ctx, query, urls)
	if err != nil {
		return nil, fmt.Errorf("query stored urls: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan stored urls: %w", err)
	}
	return crawler.SortedUnique(found), nil
}

// InsertRows copies rows into table. Columns are the sorted union of the row
// keys; a row missing a column writes NULL.
func (s *Store) InsertRows(ctx context.Context, table string, rows []crawler.Row) (int64, error) {
	if !validIdentifier.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	columns, err := columnsOf(rows)
	if err != nil {
		return 0, err
	}
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		vals := make([]any, len(columns))
		for i, c := range columns {
			vals[i] = row[c]
		}
		values = append(values, vals)
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(values))
	if err != nil {
		return 0, fmt.Errorf("copy rows into %s: %w", table, err)
	}
	return n, nil
}

func columnsOf(rows []crawler.Row) ([]string, error) {
	set := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			set[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		if !validIdentifier.MatchString(k) {
			return nil, fmt.Errorf("invalid column name %q", k)
		}
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns, nil
}
