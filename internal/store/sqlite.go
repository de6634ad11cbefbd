package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// cst is the fixed UTC+8 offset used for last_edit timestamps.
var cst = time.FixedZone("UTC+8", 8*60*60)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	columns map[string]bool
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent webhook deliveries.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return s.loadColumns(ctx)
}

// loadColumns caches the pull_requests column set so partial records can be
// validated before building SQL.
func (s *SQLiteStore) loadColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(pull_requests)")
	if err != nil {
		return fmt.Errorf("read table info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	s.columns = make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		s.columns[name] = true
	}
	return rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqlValue converts a record value into something database/sql can bind.
// Slices and maps are stored as JSON text.
func sqlValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, int, int64, float64, bool, []byte, time.Time:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serialize value: %w", err)
		}
		return string(data), nil
	}
}

// Upsert updates the row matching the record's html_url, inserting when no
// row exists. Keys that are not table columns are logged and skipped.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	htmlURL, ok := rec["html_url"].(string)
	if !ok || htmlURL == "" {
		return fmt.Errorf("record missing html_url")
	}

	if _, ok := rec["last_edit"]; !ok {
		rec["last_edit"] = time.Now().In(cst).Format("2006-01-02 15:04:05")
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k == "html_url" {
			continue
		}
		if !s.columns[k] {
			s.logger.Warn("discarding unknown record key", "key", k, "html_url", htmlURL)
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)+1)
	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := sqlValue(rec[k])
		if err != nil {
			return fmt.Errorf("column %s: %w", k, err)
		}
		sets = append(sets, k+"=?")
		args = append(args, v)
	}

	if len(sets) > 0 {
		query := "UPDATE pull_requests SET " + strings.Join(sets, ", ") + " WHERE html_url=?"
		result, err := s.db.ExecContext(ctx, query, append(args, htmlURL)...)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			return nil
		}
	}

	cols := append([]string{"html_url"}, keys...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO pull_requests (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders)
	if _, err := s.db.ExecContext(ctx, query, append([]any{htmlURL}, args...)...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// UpsertAsync writes the record on a background goroutine so webhook handling
// never blocks on the database.
func (s *SQLiteStore) UpsertAsync(rec Record) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Upsert(ctx, rec); err != nil {
			s.logger.Error("async record write failed",
				"error", err,
				"html_url", rec["html_url"],
				"keys", len(rec))
		}
	}()
}

// GetRecord returns the stored row for a pull request, or nil when absent.
func (s *SQLiteStore) GetRecord(ctx context.Context, htmlURL string) (Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM pull_requests WHERE html_url = ?", htmlURL)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// ListRecords returns the most recently edited rows, newest first.
func (s *SQLiteStore) ListRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT * FROM pull_requests ORDER BY last_edit DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// scanRecords reads rows of unknown width into Record maps.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			if values[i] == nil {
				continue
			}
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
