// Package rules answers "which compliance rules apply to this changed file"
// from a precomputed per-repository lookup table.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Wildcard is the catch-all key applied to every review regardless of which
// files changed.
const Wildcard = "*"

// Entry is the rule citation triple for a single filename key.
type Entry struct {
	CodeRules        []string `json:"code_rules"`
	CodeRuleChapters []string `json:"code_rule_chapters"`
	Descriptions     []string `json:"descriptions"`
}

// Index is the full precomputed table for one (owner, repo) pair, keyed by
// file basename or Wildcard.
type Index map[string]Entry

// Load reads the rule table for owner/repo from libDir. A missing table is
// not an error: reviews proceed without rule augmentation.
func Load(libDir, owner, repo string) (Index, error) {
	path := filepath.Join(libDir, owner, "rules", repo+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse rule table %s: %w", path, err)
	}
	return idx, nil
}

// Filter returns the subset of the index whose keys are exact basename
// matches for any changed file, plus the wildcard entry when present. No
// directory matching, no globbing; each entry stands alone.
func (idx Index) Filter(changedFiles []string) Index {
	names := make([]string, 0, len(changedFiles)+1)
	for _, f := range changedFiles {
		names = append(names, filepath.Base(f))
	}
	names = append(names, Wildcard)

	filtered := Index{}
	for _, name := range names {
		if entry, ok := idx[name]; ok {
			filtered[name] = entry
		}
	}
	return filtered
}
