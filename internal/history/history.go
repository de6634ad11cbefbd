// Package history archives finished reviews as plain text files, partitioned
// by month and day so they can be bulk loaded into retrieval systems later.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archiver writes review transcripts under a root directory.
type Archiver struct {
	root string
}

// New creates an Archiver rooted at dir.
func New(dir string) *Archiver {
	return &Archiver{root: dir}
}

// Entry is one finished review to archive.
type Entry struct {
	Owner      string
	Repo       string
	PRNumber   int
	Title      string
	JiraID     string
	Risk       string
	ReviewBody string
}

// Save writes the entry to <root>/<YYYYMM>/<DD>/<owner>_<repo>_<pr>.txt,
// overwriting any earlier archive of the same pull request that day.
func (a *Archiver) Save(e Entry) (string, error) {
	now := time.Now()
	dir := filepath.Join(a.root, now.Format("200601"), now.Format("02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s/%s\n", e.Owner, e.Repo)
	fmt.Fprintf(&b, "Pull Request: #%d\n", e.PRNumber)
	fmt.Fprintf(&b, "Title: %s\n", e.Title)
	if e.JiraID != "" {
		fmt.Fprintf(&b, "Ticket: %s\n", e.JiraID)
	}
	fmt.Fprintf(&b, "Risk: %s\n\n", e.Risk)
	b.WriteString(e.ReviewBody)
	b.WriteString("\n")

	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%d.txt", e.Owner, e.Repo, e.PRNumber))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}
