package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/PROJ-42", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"key": "PROJ-42",
			"fields": map[string]any{
				"summary":     "Fix crash on startup",
				"description": "Crashes when config missing",
				"issuetype":   map[string]string{"name": "Bug"},
				"fixVersions": []map[string]string{{"name": "2.1"}},
				"components":  []map[string]string{{"name": "bootloader"}},
				"labels":      []string{"crash"},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret")
	ticket, err := c.Issue(context.Background(), "PROJ-42")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-42", ticket.Key)
	assert.Equal(t, "Fix crash on startup", ticket.Summary)
	assert.Equal(t, "Bug", ticket.IssueType)
	assert.Equal(t, []string{"2.1"}, ticket.FixVersions)
	assert.Equal(t, []string{"bootloader"}, ticket.Components)

	detail := ticket.Detail()
	assert.Contains(t, detail, "Summary: Fix crash on startup")
	assert.Contains(t, detail, "Fix Versions: 2.1")
	assert.Contains(t, detail, "Description: Crashes when config missing")
}

func TestIssueNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret")
	_, err := c.Issue(context.Background(), "PROJ-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestIDFromBranch(t *testing.T) {
	assert.Equal(t, "PROJ-123", IDFromBranch("feature/PROJ-123"))
	assert.Equal(t, "PROJ-123", IDFromBranch("feature/PROJ-123/subtask"))
	assert.Equal(t, "", IDFromBranch("main"))
	assert.Equal(t, "", IDFromBranch("bugfix/PROJ-9"))
}

func TestBrowseURL(t *testing.T) {
	assert.Equal(t, "https://jira.example.com/browse/PROJ-1", BrowseURL("https://jira.example.com/", "PROJ-1"))
	assert.Equal(t, "", BrowseURL("https://jira.example.com", ""))
}
