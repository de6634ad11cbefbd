package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestUpsertInsertsThenUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://github.example.com/acme/widget/pull/1"

	err := s.Upsert(ctx, Record{
		"html_url":  url,
		"owner":     "acme",
		"repo_name": "widget",
		"pr_number": 1,
		"title":     "first title",
	})
	require.NoError(t, err)

	rec, err := s.GetRecord(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "first title", rec["title"])
	assert.Equal(t, int64(1), rec["pr_number"])
	assert.NotEmpty(t, rec["last_edit"])

	// Second write with the same html_url must update, not duplicate.
	err = s.Upsert(ctx, Record{
		"html_url":    url,
		"title":       "second title",
		"ai_risk_level": "low",
	})
	require.NoError(t, err)

	all, err := s.ListRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second title", all[0]["title"])
	assert.Equal(t, "low", all[0]["ai_risk_level"])
	// Untouched columns survive the update.
	assert.Equal(t, "acme", all[0]["owner"])
}

func TestUpsertRequiresHTMLURL(t *testing.T) {
	s := newTestStore(t)
	err := s.Upsert(context.Background(), Record{"title": "no key"})
	require.Error(t, err)
}

func TestUpsertSkipsUnknownColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://github.example.com/acme/widget/pull/2"

	err := s.Upsert(ctx, Record{
		"html_url":     url,
		"title":        "ok",
		"no_such_col":  "dropped",
		"another_junk": 42,
	})
	require.NoError(t, err)

	rec, err := s.GetRecord(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "ok", rec["title"])
	assert.NotContains(t, rec, "no_such_col")
}

func TestUpsertSerializesLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://github.example.com/acme/widget/pull/3"

	err := s.Upsert(ctx, Record{
		"html_url":          url,
		"changed_file_list": []string{"src/a.c", "src/b.c"},
	})
	require.NoError(t, err)

	rec, err := s.GetRecord(ctx, url)
	require.NoError(t, err)
	assert.JSONEq(t, `["src/a.c","src/b.c"]`, rec["changed_file_list"].(string))
}

func TestGetRecordMissing(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.GetRecord(context.Background(), "https://nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestListRecordsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Record{
		"html_url": "https://github.example.com/acme/widget/pull/10",
		"last_edit": "2025-01-01 10:00:00",
	}))
	require.NoError(t, s.Upsert(ctx, Record{
		"html_url": "https://github.example.com/acme/widget/pull/11",
		"last_edit": "2025-06-01 10:00:00",
	}))

	recs, err := s.ListRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "https://github.example.com/acme/widget/pull/11", recs[0]["html_url"])
}
