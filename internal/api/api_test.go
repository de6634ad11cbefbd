package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revbot/internal/jira"
	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/router"
	"github.com/joescharf/revbot/internal/store"
)

type stubGH struct{}

func (stubGH) PullRequest(ctx context.Context, repoURL string, number int) (models.PullRequest, error) {
	return models.PullRequest{Number: number}, nil
}
func (stubGH) Diff(ctx context.Context, repoURL string, number int) (string, error) {
	return "diff", nil
}
func (stubGH) ChangedFiles(ctx context.Context, repoURL string, number int) ([]string, error) {
	return nil, nil
}
func (stubGH) Comments(ctx context.Context, repoURL string, number int) ([]models.Comment, error) {
	return nil, nil
}
func (stubGH) CreateComment(ctx context.Context, repoURL string, number int, body string) error {
	return nil
}
func (stubGH) UpdateComment(ctx context.Context, repoURL string, commentID int64, body string) error {
	return nil
}
func (stubGH) Reviews(ctx context.Context, repoURL string, number int) ([]models.Review, error) {
	return nil, nil
}
func (stubGH) CodeownersTeam(ctx context.Context, repoURL, ref string) (string, string, error) {
	return "", "", nil
}
func (stubGH) TeamMembers(ctx context.Context, orgURL, team string) ([]string, error) {
	return nil, nil
}
func (stubGH) PRNumberForCommit(ctx context.Context, repoURL, sha string) (int, error) {
	return 0, nil
}

type stubJira struct{}

func (stubJira) Issue(ctx context.Context, key string) (jira.Ticket, error) {
	return jira.Ticket{}, nil
}

type stubReviewer struct{ runs int }

func (s *stubReviewer) Run(ctx context.Context, req models.ReviewRequest) models.ReviewResult {
	s.runs++
	return models.ReviewResult{Risk: models.RiskLow, Body: "ok"}
}
func (s *stubReviewer) Reply(ctx context.Context, req models.ReviewRequest, userName, commentHistory string) string {
	return "ok"
}

type memStore struct {
	mu      sync.Mutex
	records map[string]store.Record
}

func newMemStore() *memStore { return &memStore{records: map[string]store.Record{}} }

func (m *memStore) Upsert(ctx context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec["html_url"].(string)] = rec
	return nil
}
func (m *memStore) UpsertAsync(rec store.Record) { _ = m.Upsert(context.Background(), rec) }
func (m *memStore) GetRecord(ctx context.Context, htmlURL string) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[htmlURL], nil
}
func (m *memStore) ListRecords(ctx context.Context, limit int) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Record
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}
func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func newTestServer(t *testing.T) (*Server, *memStore, *stubReviewer) {
	t.Helper()
	st := newMemStore()
	rev := &stubReviewer{}
	rt := router.New(stubGH{}, stubJira{}, rev, st, "revbot", "https://jira.example.com", nil)
	return NewServer(rt, st, nil), st, rev
}

func TestWebhookMissingEventHeader(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	s, st, rev := newTestServer(t)
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{}"))
	req.Header.Set("X-GitHub-Event", "ping")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, rev.runs)
	assert.Empty(t, st.records)
}

func TestWebhookPullRequestOpened(t *testing.T) {
	s, st, rev := newTestServer(t)
	body := `{
		"action": "opened",
		"repository": {"name": "widget", "url": "https://gh/api/v3/repos/acme/widget", "html_url": "https://gh/acme/widget", "owner": {"login": "acme"}},
		"pull_request": {"number": 5, "title": "Fix", "html_url": "https://gh/acme/widget/pull/5",
			"user": {"login": "alice"}, "head": {"ref": "feature/PROJ-5"}, "base": {"ref": "main"}}
	}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rev.runs)
	require.Contains(t, st.records, "https://gh/acme/widget/pull/5")
	assert.Equal(t, "low", st.records["https://gh/acme/widget/pull/5"]["ai_risk_level"])
}

func TestWebhookBadJSON(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{not json"))
	req.Header.Set("X-GitHub-Event", "pull_request")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecord(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.Upsert(context.Background(), store.Record{
		"html_url": "https://gh/acme/widget/pull/9", "ai_risk_level": "high",
	}))

	req := httptest.NewRequest("GET", "/api/v1/record?url=https://gh/acme/widget/pull/9", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ai_risk_level":"high"`)

	req = httptest.NewRequest("GET", "/api/v1/record?url=https://gh/none", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecords(t *testing.T) {
	s, st, _ := newTestServer(t)
	require.NoError(t, st.Upsert(context.Background(), store.Record{"html_url": "https://gh/p/1"}))

	req := httptest.NewRequest("GET", "/api/v1/records", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://gh/p/1")

	req = httptest.NewRequest("GET", "/api/v1/records?limit=bogus", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
