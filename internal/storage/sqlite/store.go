// Package sqlite implements the URL and row persistence ports on a local
// SQLite file, for runs without a Postgres server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store implements crawler.URLStore and crawler.RowWriter. Tables are
// created on first insert and grow a column whenever a row brings a new key.
type Store struct {
	db        *sql.DB
	urlColumn string
	mu        sync.Mutex
}

// Open opens (or creates) the database at path. Use ":memory:" for tests.
func Open(path, urlColumn string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if urlColumn == "" {
		urlColumn = "url"
	}
	if !validIdentifier.MatchString(urlColumn) {
		return nil, fmt.Errorf("invalid column name %q", urlColumn)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases alive and avoids lock conflicts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 30000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return &Store{db: db, urlColumn: urlColumn}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// URLsAlreadyStored returns the members of urls found in table, sorted. A
// missing table holds no URLs.
func (s *Store) URLsAlreadyStored(ctx context.Context, table string, urls []string) ([]string, error) {
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(urls) == 0 {
		return nil, nil
	}
	columns, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if _, ok := columns[s.urlColumn]; !ok {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IN (%[3]s)`, s.urlColumn, table, placeholders)
	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stored urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found []string
	for rows.Next() {
		var u sql.NullString
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan stored url: %w", err)
		}
		if u.Valid {
			found = append(found, u.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored urls: %w", err)
	}
	return crawler.SortedUnique(found), nil
}

// InsertRows appends rows to table inside one transaction.
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureTable(ctx, table, columns); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(columns, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var written int64
	for _, row := range rows {
		args := make([]any, len(columns))
		for i, c := range columns {
			v, err := encode(row[c])
			if err != nil {
				return 0, fmt.Errorf("encode %s: %w", c, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (s *Store) ensureTable(ctx context.Context, table string, columns []string) error {
	existing, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, table, strings.Join(columns, ", "))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		return nil
	}
	for _, c := range columns {
		if _, ok := existing[c]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s`, table, c)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c, err)
		}
	}
	return nil
}

func (s *Store) columns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
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

// encode maps a row value onto a SQLite storage class. Slices, maps and
// structs are stored as JSON text.
func encode(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte:
		return t, nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}
