// Package pipeline runs one pull request review end to end: rule lookup,
// prompt assembly, AI call, risk parsing, post check scoring, and outcome
// bookkeeping. It never returns an error to the router; every failure path
// degrades to a posted failure template and a watchdog line.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/revbot/internal/history"
	"github.com/joescharf/revbot/internal/jira"
	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/prompt"
	"github.com/joescharf/revbot/internal/rules"
	"github.com/joescharf/revbot/internal/watchdog"
)

// Asker is the gateway surface the pipeline consumes.
type Asker interface {
	Ask(ctx context.Context, question, system string) string
}

// providerErrRe matches upstream gateway error text that sometimes leaks into
// completions. A review containing it is unusable.
var providerErrRe = regexp.MustCompile(`(?m)^Error: data:|Error: Response generation timed out|^VIO API request exception:`)

// postCheckAttempts bounds the scoring retries per review.
const postCheckAttempts = 3

// Pipeline reviews pull requests.
type Pipeline struct {
	gateway  Asker
	libDir   string
	jiraBase string
	watchdog *watchdog.Writer
	archive  *history.Archiver
	logger   *slog.Logger
}

// New wires a Pipeline. The watchdog and archive may be nil in tests.
func New(gateway Asker, libDir, jiraBase string, wd *watchdog.Writer, arch *history.Archiver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gateway:  gateway,
		libDir:   libDir,
		jiraBase: jiraBase,
		watchdog: wd,
		archive:  arch,
		logger:   logger,
	}
}

// Run reviews one pull request and returns the comment body to post. The
// result is always usable as a comment, even when the review failed.
func (p *Pipeline) Run(ctx context.Context, req models.ReviewRequest) models.ReviewResult {
	builder := prompt.ForProject(req.Owner)

	if req.Repo == "" || strings.TrimSpace(req.Diff) == "" {
		p.logger.Warn("review skipped, no diff available",
			"owner", req.Owner, "repo", req.Repo, "pr", req.PRNumber)
		return p.finish(req, models.ReviewResult{
			Risk:   models.RiskInvalid,
			Body:   wrap(prompt.CannotFetchDiff(req.Locale)),
			Failed: true,
		})
	}

	ruleSet, err := rules.Load(p.libDir, req.Owner, req.Repo)
	if err != nil {
		p.logger.Error("rule table load failed",
			"error", err, "owner", req.Owner, "repo", req.Repo)
		ruleSet = rules.Index{}
	}
	applicable := ruleSet.Filter(req.ChangedFiles)

	question := builder.Review(req, applicable)
	answer := p.gateway.Ask(ctx, question, "")

	if answer == "" || providerErrRe.MatchString(answer) {
		if answer != "" {
			p.logger.Warn("provider error text in review, discarding",
				"owner", req.Owner, "repo", req.Repo, "pr", req.PRNumber)
		}
		return p.finish(req, models.ReviewResult{
			Risk:   models.RiskInvalid,
			Body:   prompt.CannotReview(req.Locale),
			Failed: true,
		})
	}

	risk := models.ExtractRiskLevel(answer)
	if !risk.Valid() {
		// The model broke the output contract. The raw text goes to the log
		// only; users get the fixed failure template.
		p.logger.Warn("review missing risk token, discarding",
			"owner", req.Owner, "repo", req.Repo, "pr", req.PRNumber,
			"answer", answer)
		return p.finish(req, models.ReviewResult{
			Risk:   models.RiskInvalid,
			Body:   wrap(prompt.FailureTemplate(builder)),
			Failed: true,
		})
	}

	body := p.banner(req, risk) + answer
	result := models.ReviewResult{Risk: risk, Body: body}

	if check, ok := p.postCheck(ctx, question, answer, req.Locale); ok {
		result.PostCheck = &check
		result.Body += fmt.Sprintf("\n---\n\n*AI Post Check*\nScore: %d\nReason: %s",
			check.Score, check.Reason)
	}
	result.Body = wrap(result.Body)

	return p.finish(req, result)
}

// banner renders the localized header above the review text.
func (p *Pipeline) banner(req models.ReviewRequest, risk models.RiskLevel) string {
	var sb strings.Builder
	link := jira.BrowseURL(p.jiraBase, req.JiraID)

	if req.Locale == prompt.LocaleZH {
		if req.JiraID != "" {
			if req.JiraSummary != "" {
				fmt.Fprintf(&sb, "本次PR基于Jira Ticket: [%s](%s)\n\n", req.JiraSummary, link)
			} else {
				fmt.Fprintf(&sb, "本次PR基于Jira Ticket: %s\n\n", link)
			}
		}
		fmt.Fprintf(&sb, "Target Branch: %s\n\n", req.BaseBranch)
		fmt.Fprintf(&sb, "合并风险: %s\n\n---\n\n", prompt.RiskDisplay(risk, req.Locale))
		return sb.String()
	}

	if req.JiraID != "" {
		if req.JiraSummary != "" {
			fmt.Fprintf(&sb, "This PR is based on Jira Ticket: [%s](%s)\n\n", req.JiraSummary, link)
		} else {
			fmt.Fprintf(&sb, "This PR is based on Jira Ticket: %s\n\n", link)
		}
	}
	fmt.Fprintf(&sb, "Target Branch: %s\n\n", req.BaseBranch)
	fmt.Fprintf(&sb, "Merge Risk: %s\n\n---\n\n", prompt.RiskDisplay(risk, req.Locale))
	return sb.String()
}

// postCheck asks the gateway to score the finished review. It tries up to
// postCheckAttempts times and reports ok=false when no attempt produced a
// parseable "<score>,<reason>" answer.
func (p *Pipeline) postCheck(ctx context.Context, question, answer, locale string) (models.PostCheck, bool) {
	q := prompt.PostCheckQuestion(question, answer, locale)
	for attempt := 1; attempt <= postCheckAttempts; attempt++ {
		reply := p.gateway.Ask(ctx, q, "")
		check, err := ParsePostCheck(reply)
		if err == nil {
			return check, true
		}
		p.logger.Warn("post check attempt failed",
			"attempt", attempt, "error", err)
	}
	return models.PostCheck{}, false
}

// ParsePostCheck parses a "<score>,<reason>" reply. Only the first comma
// separates the fields; the reason may contain more commas.
func ParsePostCheck(reply string) (models.PostCheck, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return models.PostCheck{}, fmt.Errorf("empty post check reply")
	}
	scoreText, reason, found := strings.Cut(reply, ",")
	if !found {
		scoreText, reason, found = strings.Cut(reply, "，")
	}
	if !found {
		return models.PostCheck{}, fmt.Errorf("no separator in post check reply")
	}
	score, err := strconv.Atoi(strings.TrimSpace(scoreText))
	if err != nil {
		return models.PostCheck{}, fmt.Errorf("parse post check score: %w", err)
	}
	if score < 0 || score > 100 {
		return models.PostCheck{}, fmt.Errorf("post check score %d out of range", score)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.PostCheck{}, fmt.Errorf("empty post check explanation")
	}
	return models.PostCheck{Score: score, Reason: reason}, nil
}

// wrap frames a body with the fixed comment prefix and the follow-up hint.
func wrap(body string) string {
	if !strings.HasPrefix(body, "*Review message from AI:*") {
		body = "*Review message from AI:*\n\n" + body
	}
	return body + "\n\n*Any question, you can ask me with 'AI' in your comment or @me.*"
}

// finish records the terminal outcome and archives usable reviews.
func (p *Pipeline) finish(req models.ReviewRequest, result models.ReviewResult) models.ReviewResult {
	if p.watchdog != nil {
		link := jira.BrowseURL(p.jiraBase, req.JiraID)
		if err := p.watchdog.Record(!result.Failed, req.Owner, link, req.PRURL); err != nil {
			p.logger.Error("watchdog write failed", "error", err)
		}
	}
	if p.archive != nil && !result.Failed {
		if _, err := p.archive.Save(history.Entry{
			Owner:      req.Owner,
			Repo:       req.Repo,
			PRNumber:   req.PRNumber,
			Title:      req.Title,
			JiraID:     req.JiraID,
			Risk:       string(result.Risk),
			ReviewBody: result.Body,
		}); err != nil {
			p.logger.Error("history archive failed", "error", err)
		}
	}
	return result
}

// Reply answers a user comment that mentioned the bot. It returns the comment
// body to post.
func (p *Pipeline) Reply(ctx context.Context, req models.ReviewRequest, userName, commentHistory string) string {
	question := prompt.ReplyQuestion(userName, req.Title, req.Repo, req.Diff, commentHistory, req.Locale, time.Now())
	answer := p.gateway.Ask(ctx, question, "")
	if answer == "" || providerErrRe.MatchString(answer) {
		return prompt.CannotReply(req.Locale)
	}
	return answer
}
