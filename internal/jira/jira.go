// Package jira fetches issue context used to ground reviews.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ticket is the subset of a Jira issue the review pipeline cares about.
type Ticket struct {
	Key         string
	Summary     string
	Description string
	IssueType   string
	FixVersions []string
	Versions    []string
	Components  []string
	Labels      []string
}

// Detail renders the ticket fields as a labelled block for prompts.
func (t Ticket) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %s\n", t.Summary)
	fmt.Fprintf(&b, "Type: %s\n", t.IssueType)
	if len(t.FixVersions) > 0 {
		fmt.Fprintf(&b, "Fix Versions: %s\n", strings.Join(t.FixVersions, ", "))
	}
	if len(t.Versions) > 0 {
		fmt.Fprintf(&b, "Affects Versions: %s\n", strings.Join(t.Versions, ", "))
	}
	if len(t.Components) > 0 {
		fmt.Fprintf(&b, "Components: %s\n", strings.Join(t.Components, ", "))
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(t.Labels, ", "))
	}
	fmt.Fprintf(&b, "Description: %s", t.Description)
	return b.String()
}

// Client fetches issues from a Jira server.
type Client interface {
	Issue(ctx context.Context, key string) (Ticket, error)
}

// HTTPClient implements Client against the Jira REST API v2.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a Jira client using bearer token auth.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type issueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		IssueType   struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		FixVersions []namedField `json:"fixVersions"`
		Versions    []namedField `json:"versions"`
		Components  []namedField `json:"components"`
		Labels      []string     `json:"labels"`
	} `json:"fields"`
}

type namedField struct {
	Name string `json:"name"`
}

func names(fields []namedField) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// Issue fetches a ticket by key, e.g. "PROJ-123".
func (c *HTTPClient) Issue(ctx context.Context, key string) (Ticket, error) {
	url := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Ticket{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Ticket{}, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ticket{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Ticket{}, fmt.Errorf("issue %s: status %d: %s", key, resp.StatusCode, data)
	}

	var parsed issueResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Ticket{}, fmt.Errorf("parse issue %s: %w", key, err)
	}
	return Ticket{
		Key:         parsed.Key,
		Summary:     parsed.Fields.Summary,
		Description: parsed.Fields.Description,
		IssueType:   parsed.Fields.IssueType.Name,
		FixVersions: names(parsed.Fields.FixVersions),
		Versions:    names(parsed.Fields.Versions),
		Components:  names(parsed.Fields.Components),
		Labels:      parsed.Fields.Labels,
	}, nil
}

// IDFromBranch extracts a ticket key from a feature branch name like
// "feature/PROJ-123". Returns empty when the branch carries no key.
func IDFromBranch(branch string) string {
	const prefix = "feature/"
	if !strings.HasPrefix(branch, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(branch, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// BrowseURL is the human-facing link for a ticket key.
func BrowseURL(baseURL, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/browse/" + key
}
