package models

import "strings"

// RiskLevel is the merge-risk verdict extracted from an AI review answer.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskInvalid RiskLevel = "invalid"
)

// Valid reports whether the risk level is one of the three contract tokens.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// ExtractRiskLevel derives the risk level from a raw AI answer. The prompt
// contract requires the last non-blank line to be exactly one of
// low/medium/high; anything else is RiskInvalid.
func ExtractRiskLevel(answer string) RiskLevel {
	lines := strings.Split(answer, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.ToLower(strings.TrimSpace(lines[i]))
		if line == "" {
			continue
		}
		level := RiskLevel(line)
		if !level.Valid() {
			return RiskInvalid
		}
		return level
	}
	return RiskInvalid
}

// ReviewRequest carries everything a single pipeline run needs. It is built
// once by the router and never mutated by pipeline stages.
type ReviewRequest struct {
	Owner        string
	Repo         string
	PRNumber     int
	PRURL        string
	Title        string
	BaseBranch   string
	HeadBranch   string
	Diff         string
	ChangedFiles []string
	JiraID       string
	JiraDetail   string
	JiraSummary  string
	Locale       string
}

// PostCheck holds the secondary model's accuracy assessment of a review.
type PostCheck struct {
	Score  int
	Reason string
}

// ReviewResult is the terminal outcome of a pipeline run.
type ReviewResult struct {
	Risk      RiskLevel
	Body      string
	PostCheck *PostCheck
	Failed    bool
}
