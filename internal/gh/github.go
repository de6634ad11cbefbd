// Package gh is the GitHub REST collaborator. All URLs are the API URLs
// delivered inside webhook payloads; the client never constructs repository
// URLs itself.
package gh

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/revbot/internal/models"
)

// Client is the set of GitHub operations the router and pipeline consume.
type Client interface {
	PullRequest(ctx context.Context, repoURL string, number int) (models.PullRequest, error)
	Diff(ctx context.Context, repoURL string, number int) (string, error)
	ChangedFiles(ctx context.Context, repoURL string, number int) ([]string, error)
	Comments(ctx context.Context, repoURL string, number int) ([]models.Comment, error)
	CreateComment(ctx context.Context, repoURL string, number int, body string) error
	UpdateComment(ctx context.Context, repoURL string, commentID int64, body string) error
	Reviews(ctx context.Context, repoURL string, number int) ([]models.Review, error)
	CodeownersTeam(ctx context.Context, repoURL, ref string) (org, team string, err error)
	TeamMembers(ctx context.Context, orgURL, team string) ([]string, error)
	PRNumberForCommit(ctx context.Context, repoURL, sha string) (int, error)
}

// HTTPClient implements Client against the GitHub v3 REST API.
type HTTPClient struct {
	token  string
	client *http.Client
}

// NewHTTPClient creates a GitHub client authenticated with a token.
func NewHTTPClient(token string) *HTTPClient {
	return &HTTPClient{
		token:  token,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, url, accept string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	if accept == "" {
		accept = "application/vnd.github.v3+json"
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, data)
	}
	return data, nil
}

// PullRequest fetches the full pull request object.
func (c *HTTPClient) PullRequest(ctx context.Context, repoURL string, number int) (models.PullRequest, error) {
	url := fmt.Sprintf("%s/pulls/%d", repoURL, number)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return models.PullRequest{}, err
	}

	var pr models.PullRequest
	if err := json.Unmarshal(data, &pr); err != nil {
		return models.PullRequest{}, fmt.Errorf("parse pull request: %w", err)
	}
	return pr, nil
}

// Diff fetches the unified diff of a pull request.
func (c *HTTPClient) Diff(ctx context.Context, repoURL string, number int) (string, error) {
	url := fmt.Sprintf("%s/pulls/%d", repoURL, number)
	data, err := c.do(ctx, "GET", url, "application/vnd.github.v3.diff", nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ChangedFiles lists the filenames touched by a pull request.
func (c *HTTPClient) ChangedFiles(ctx context.Context, repoURL string, number int) ([]string, error) {
	url := fmt.Sprintf("%s/pulls/%d/files", repoURL, number)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, err
	}

	var files []struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("parse changed files: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	return names, nil
}

// Comments lists the issue comments of a pull request.
func (c *HTTPClient) Comments(ctx context.Context, repoURL string, number int) ([]models.Comment, error) {
	url := fmt.Sprintf("%s/issues/%d/comments", repoURL, number)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return nil, fmt.Errorf("parse comments: %w", err)
	}
	return comments, nil
}

// CreateComment posts a new issue comment on a pull request.
func (c *HTTPClient) CreateComment(ctx context.Context, repoURL string, number int, body string) error {
	url := fmt.Sprintf("%s/issues/%d/comments", repoURL, number)
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	_, err = c.do(ctx, "POST", url, "", payload)
	return err
}

// UpdateComment replaces the body of an existing issue comment.
func (c *HTTPClient) UpdateComment(ctx context.Context, repoURL string, commentID int64, body string) error {
	url := fmt.Sprintf("%s/issues/comments/%d", repoURL, commentID)
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	_, err = c.do(ctx, "PATCH", url, "", payload)
	return err
}

// Reviews lists the submitted reviews of a pull request.
func (c *HTTPClient) Reviews(ctx context.Context, repoURL string, number int) ([]models.Review, error) {
	url := fmt.Sprintf("%s/pulls/%d/reviews", repoURL, number)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, err
	}

	var reviews []models.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("parse reviews: %w", err)
	}
	return reviews, nil
}

// CodeownersTeam reads .github/CODEOWNERS on the given ref and returns the
// first org/team owner it finds.
func (c *HTTPClient) CodeownersTeam(ctx context.Context, repoURL, ref string) (string, string, error) {
	url := fmt.Sprintf("%s/contents/.github/CODEOWNERS?ref=%s", repoURL, ref)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return "", "", err
	}

	var file struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return "", "", fmt.Errorf("parse CODEOWNERS response: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", "", fmt.Errorf("decode CODEOWNERS content: %w", err)
	}

	org, team := ParseCodeowners(string(decoded))
	if org == "" || team == "" {
		return "", "", fmt.Errorf("no team owner found in CODEOWNERS")
	}
	return org, team, nil
}

// ParseCodeowners extracts the first @org/team owner from CODEOWNERS text.
func ParseCodeowners(content string) (org, team string) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		owner := strings.TrimPrefix(parts[len(parts)-1], "@")
		if org, team, ok := strings.Cut(owner, "/"); ok {
			return org, team
		}
	}
	return "", ""
}

// TeamMembers lists the login names of a team's members.
func (c *HTTPClient) TeamMembers(ctx context.Context, orgURL, team string) ([]string, error) {
	url := fmt.Sprintf("%s/teams/%s/members", orgURL, team)
	data, err := c.do(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, err
	}

	var members []struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("parse team members: %w", err)
	}
	logins := make([]string, 0, len(members))
	for _, m := range members {
		logins = append(logins, m.Login)
	}
	return logins, nil
}

// PRNumberForCommit resolves the pull request a commit SHA belongs to.
func (c *HTTPClient) PRNumberForCommit(ctx context.Context, repoURL, sha string) (int, error) {
	url := fmt.Sprintf("%s/commits/%s/pulls", repoURL, sha)
	data, err := c.do(ctx, "GET", url, "application/vnd.github.groot-preview+json", nil)
	if err != nil {
		return 0, err
	}

	var pulls []struct {
		Number int `json:"number"`
	}
	if err := json.Unmarshal(data, &pulls); err != nil {
		return 0, fmt.Errorf("parse commit pulls: %w", err)
	}
	if len(pulls) == 0 {
		return 0, fmt.Errorf("no pull request found for commit %s", sha)
	}
	return pulls[0].Number, nil
}
