package gh

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewHTTPClient("test-token"), srv
}

func TestDiff(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		assert.Equal(t, "/pulls/42", r.URL.Path)
		fmt.Fprint(w, "diff --git a/main.c b/main.c")
	}))
	defer srv.Close()

	diff, err := c.Diff(context.Background(), srv.URL, 42)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/main.c b/main.c", diff)
}

func TestPullRequest(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pulls/9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"number":   9,
			"title":    "Add parser",
			"html_url": "https://gh/acme/widget/pull/9",
			"head":     map[string]string{"ref": "feature/PROJ-9"},
			"base":     map[string]string{"ref": "main"},
		})
	}))
	defer srv.Close()

	pr, err := c.PullRequest(context.Background(), srv.URL, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, pr.Number)
	assert.Equal(t, "Add parser", pr.Title)
	assert.Equal(t, "feature/PROJ-9", pr.Head.Ref)
}

func TestChangedFiles(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pulls/7/files", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]string{
			{"filename": "src/a.c"},
			{"filename": "docs/readme.md"},
		})
	}))
	defer srv.Close()

	files, err := c.ChangedFiles(context.Background(), srv.URL, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.c", "docs/readme.md"}, files)
}

func TestCreateAndUpdateComment(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotBody = payload["body"]
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, c.CreateComment(context.Background(), srv.URL, 3, "hello"))
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/issues/3/comments", gotPath)
	assert.Equal(t, "hello", gotBody)

	require.NoError(t, c.UpdateComment(context.Background(), srv.URL, 99, "edited"))
	assert.Equal(t, "PATCH", gotMethod)
	assert.Equal(t, "/issues/comments/99", gotPath)
	assert.Equal(t, "edited", gotBody)
}

func TestErrorStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := c.Diff(context.Background(), srv.URL, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestParseCodeowners(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantOrg  string
		wantTeam string
	}{
		{
			name:     "team owner",
			content:  "# owners\n* @acme/platform-team\n",
			wantOrg:  "acme",
			wantTeam: "platform-team",
		},
		{
			name:     "skips user owners",
			content:  "*.md @someuser\n* @acme/core\n",
			wantOrg:  "acme",
			wantTeam: "core",
		},
		{
			name:    "no team",
			content: "* @someuser\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org, team := ParseCodeowners(tt.content)
			assert.Equal(t, tt.wantOrg, org)
			assert.Equal(t, tt.wantTeam, team)
		})
	}
}

func TestCodeownersTeam(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("* @acme/reviewers\n"))
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contents/.github/CODEOWNERS", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		json.NewEncoder(w).Encode(map[string]string{"content": content})
	}))
	defer srv.Close()

	org, team, err := c.CodeownersTeam(context.Background(), srv.URL, "main")
	require.NoError(t, err)
	assert.Equal(t, "acme", org)
	assert.Equal(t, "reviewers", team)
}

func TestPRNumberForCommit(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github.groot-preview+json", r.Header.Get("Accept"))
		assert.Equal(t, "/commits/abc123/pulls", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]int{{"number": 15}})
	}))
	defer srv.Close()

	num, err := c.PRNumberForCommit(context.Background(), srv.URL, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 15, num)
}

func TestPRNumberForCommitEmpty(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	_, err := c.PRNumberForCommit(context.Background(), srv.URL, "abc123")
	require.Error(t, err)
}
