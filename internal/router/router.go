// Package router classifies webhook deliveries and drives the review
// pipeline for the event/action combinations that qualify. Every branch that
// does not qualify returns without touching GitHub, Jira, the AI gateway, or
// the database.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/revbot/internal/gh"
	"github.com/joescharf/revbot/internal/jira"
	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/prompt"
	"github.com/joescharf/revbot/internal/store"
)

// jenkinsCheckName is the only check_run name the router records.
const jenkinsCheckName = "Jenkins"

// Reviewer runs the review pipeline. Satisfied by *pipeline.Pipeline.
type Reviewer interface {
	Run(ctx context.Context, req models.ReviewRequest) models.ReviewResult
	Reply(ctx context.Context, req models.ReviewRequest, userName, commentHistory string) string
}

// Router dispatches classified webhook deliveries.
type Router struct {
	gh       gh.Client
	jira     jira.Client
	pipe     Reviewer
	store    store.Store
	botUser  string
	jiraBase string
	logger   *slog.Logger
}

// New wires a Router.
func New(ghc gh.Client, jc jira.Client, pipe Reviewer, st store.Store, botUser, jiraBase string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		gh:       ghc,
		jira:     jc,
		pipe:     pipe,
		store:    st,
		botUser:  botUser,
		jiraBase: jiraBase,
		logger:   logger,
	}
}

// newDeliveryID tags each handled delivery for log and record correlation.
func newDeliveryID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// localeFor derives the reply language from the author's directory entry.
// Authors under the CN organizational unit get Chinese.
func localeFor(ldapDN string) string {
	if strings.Contains(ldapDN, ",OU=cn,") {
		return prompt.LocaleZH
	}
	return prompt.LocaleEN
}

// Handle classifies one delivery and runs its effect. It returns an error
// only for faults worth a non-2xx webhook response; skipped deliveries
// return nil.
func (r *Router) Handle(ctx context.Context, event string, p models.WebhookPayload) error {
	deliveryID := newDeliveryID()
	logger := r.logger.With("delivery", deliveryID, "event", event, "action", p.Action)

	switch event {
	case "pull_request":
		if p.Action != "opened" && p.Action != "synchronize" {
			return nil
		}
		return r.handlePullRequest(ctx, p, deliveryID, logger)

	case "issue_comment":
		if p.Action != "created" && p.Action != "edited" {
			return nil
		}
		// GitHub logins are case-insensitive; a delivery may carry the bot
		// login in any casing.
		if strings.EqualFold(p.Comment.User.Login, r.botUser) {
			return nil
		}
		if !strings.Contains(p.Comment.Body, "AI") && !strings.Contains(p.Comment.Body, "@"+r.botUser) {
			return nil
		}
		return r.handleComment(ctx, p, deliveryID, logger)

	case "pull_request_review":
		if p.Action != "submitted" && p.Action != "edited" {
			return nil
		}
		return r.handleReview(ctx, p, deliveryID, logger)

	case "check_run":
		if p.CheckRun.Name != jenkinsCheckName {
			return nil
		}
		r.handleCheckRun(p, deliveryID)
		return nil

	case "status":
		return r.handleStatus(ctx, p, deliveryID, logger)

	default:
		return nil
	}
}

// Trigger synthesizes a pull_request opened delivery for manual review runs
// (CLI and MCP callers).
func (r *Router) Trigger(ctx context.Context, repoAPIURL, repoHTMLURL, owner, repo string, number int) error {
	pr, err := r.gh.PullRequest(ctx, repoAPIURL, number)
	if err != nil {
		return fmt.Errorf("fetch pull request: %w", err)
	}
	payload := models.WebhookPayload{
		Action: "opened",
		Repository: models.Repository{
			Name:    repo,
			URL:     repoAPIURL,
			HTMLURL: repoHTMLURL,
			Owner:   models.User{Login: owner},
		},
		PullRequest: pr,
	}
	return r.Handle(ctx, "pull_request", payload)
}

func (r *Router) handlePullRequest(ctx context.Context, p models.WebhookPayload, deliveryID string, logger *slog.Logger) error {
	pr := p.PullRequest
	locale := localeFor(pr.User.LdapDN)

	req := models.ReviewRequest{
		Owner:      p.Repository.Owner.Login,
		Repo:       p.Repository.Name,
		PRNumber:   pr.Number,
		PRURL:      pr.HTMLURL,
		Title:      pr.Title,
		BaseBranch: pr.Base.Ref,
		HeadBranch: pr.Head.Ref,
		Locale:     locale,
	}
	if req.Title == "" {
		req.Title = prompt.NoTitle(locale)
	}

	var ticket jira.Ticket
	req.JiraID = jira.IDFromBranch(pr.Head.Ref)
	if req.JiraID == "" {
		req.JiraDetail = prompt.NoTicketDetail(locale)
	} else {
		t, err := r.jira.Issue(ctx, req.JiraID)
		if err != nil {
			logger.Warn("jira lookup failed", "ticket", req.JiraID, "error", err)
		} else {
			ticket = t
			req.JiraDetail = ticket.Detail()
			req.JiraSummary = ticket.Summary
		}
	}

	diff, err := r.gh.Diff(ctx, p.Repository.URL, pr.Number)
	if err != nil {
		logger.Warn("diff fetch failed", "error", err)
	}
	req.Diff = diff
	if files, err := r.gh.ChangedFiles(ctx, p.Repository.URL, pr.Number); err != nil {
		logger.Warn("changed files fetch failed", "error", err)
	} else {
		req.ChangedFiles = files
	}

	result := r.pipe.Run(ctx, req)

	if err := r.postOrReplace(ctx, p.Repository.URL, pr.Number, result.Body); err != nil {
		logger.Error("posting review comment failed", "error", err)
	}

	rec := r.baseRecord(p, "pull_request", deliveryID)
	rec["locale"] = locale
	rec["jira_id"] = req.JiraID
	rec["jira_link"] = jira.BrowseURL(r.jiraBase, req.JiraID)
	rec["jira_summary"] = req.JiraSummary
	rec["jira_issuetype"] = ticket.IssueType
	rec["jira_fixversions"] = strings.Join(ticket.FixVersions, ",")
	rec["jira_versions"] = strings.Join(ticket.Versions, ",")
	rec["jira_components"] = strings.Join(ticket.Components, ",")
	rec["jira_labels"] = ticket.Labels
	rec["changed_file_list"] = req.ChangedFiles
	// Failed reviews store an empty risk level, never the sentinel.
	riskLevel := ""
	if result.Risk.Valid() {
		riskLevel = string(result.Risk)
	}
	rec["ai_risk_level"] = riskLevel
	rec["ai_review"] = result.Body
	if result.PostCheck != nil {
		rec["post_check_score"] = result.PostCheck.Score
		rec["post_check_reason"] = result.PostCheck.Reason
	}
	r.store.UpsertAsync(rec)
	return nil
}

func (r *Router) handleComment(ctx context.Context, p models.WebhookPayload, deliveryID string, logger *slog.Logger) error {
	locale := localeFor(p.Comment.User.LdapDN)
	number := p.Issue.Number

	req := models.ReviewRequest{
		Owner:    p.Repository.Owner.Login,
		Repo:     p.Repository.Name,
		PRNumber: number,
		Title:    p.Issue.Title,
		Locale:   locale,
	}

	diff, err := r.gh.Diff(ctx, p.Repository.URL, number)
	if err != nil {
		logger.Warn("diff fetch failed", "error", err)
	}
	req.Diff = diff

	history := ""
	if comments, err := r.gh.Comments(ctx, p.Repository.URL, number); err != nil {
		logger.Warn("comment thread fetch failed", "error", err)
	} else {
		var sb strings.Builder
		for _, c := range comments {
			fmt.Fprintf(&sb, "%s: %s\n\n", c.User.Login, c.Body)
		}
		history = sb.String()
	}

	body := r.pipe.Reply(ctx, req, p.Comment.User.Login, history)
	if err := r.gh.CreateComment(ctx, p.Repository.URL, number, body); err != nil {
		logger.Error("posting reply failed", "error", err)
	}

	rec := store.Record{
		"html_url":    p.Repository.HTMLURL + "/pull/" + strconv.Itoa(number),
		"event":       "issue_comment",
		"action":      p.Action,
		"delivery_id": deliveryID,
		"owner":       p.Repository.Owner.Login,
		"repo_name":   p.Repository.Name,
		"pr_number":   number,
	}
	r.store.UpsertAsync(rec)
	return nil
}

func (r *Router) handleReview(ctx context.Context, p models.WebhookPayload, deliveryID string, logger *slog.Logger) error {
	pr := p.PullRequest

	approved := func(state string) bool {
		return strings.EqualFold(state, "approved")
	}

	var teamMembers []string
	org, team, err := r.gh.CodeownersTeam(ctx, p.Repository.URL, pr.Base.Ref)
	if err != nil {
		logger.Warn("codeowners lookup failed", "error", err)
	} else if members, err := r.gh.TeamMembers(ctx, p.Organization.URL, team); err != nil {
		logger.Warn("team members lookup failed", "org", org, "team", team, "error", err)
	} else {
		teamMembers = members
	}

	approvalSatisfied := false
	codeOwnerApproved := false
	reviews, err := r.gh.Reviews(ctx, p.Repository.URL, pr.Number)
	if err != nil {
		logger.Warn("reviews fetch failed", "error", err)
	}
	for _, rv := range reviews {
		if !approved(rv.State) {
			continue
		}
		approvalSatisfied = true
		for _, m := range teamMembers {
			if m == rv.User.Login {
				codeOwnerApproved = true
			}
		}
	}

	rec := r.baseRecord(p, "pull_request_review", deliveryID)
	rec["review_state"] = p.Review.State
	rec["review_submitted_at"] = p.Review.SubmittedAt
	rec["approval_satisfied"] = approvalSatisfied
	rec["code_owner_approved"] = codeOwnerApproved
	r.store.UpsertAsync(rec)
	return nil
}

// handleCheckRun records CI timing only; it never calls the AI.
func (r *Router) handleCheckRun(p models.WebhookPayload, deliveryID string) {
	if len(p.CheckRun.PullRequests) == 0 {
		return
	}
	apiURL := p.CheckRun.PullRequests[0].URL
	htmlURL := checkRunHTMLURL(apiURL)

	rec := store.Record{
		"html_url":                 htmlURL,
		"event":                    "check_run",
		"action":                   p.Action,
		"delivery_id":              deliveryID,
		"owner":                    p.Repository.Owner.Login,
		"repo_name":                p.Repository.Name,
		"check_run_name":           p.CheckRun.Name,
		"check_run_status":         p.CheckRun.Status,
		"check_run_conclusion":     p.CheckRun.Conclusion,
		"check_run_url":            p.CheckRun.DetailsURL,
		"check_run_started_at":     p.CheckRun.StartedAt,
		"check_run_completed_at":   p.CheckRun.CompletedAt,
		"check_run_output_title":   p.CheckRun.Output.Title,
		"check_run_output_summary": p.CheckRun.Output.Summary,
		"check_run_output_text":    p.CheckRun.Output.Text,
		"check_suite_status":       p.CheckRun.CheckSuite.Status,
		"check_suite_conclusion":   p.CheckRun.CheckSuite.Conclusion,
	}
	if d, ok := durationSeconds(p.CheckRun.StartedAt, p.CheckRun.CompletedAt); ok {
		rec["check_run_duration"] = d
	}
	if n := prNumberFromURL(apiURL); n > 0 {
		rec["pr_number"] = n
	}
	r.store.UpsertAsync(rec)
}

// checkRunHTMLURL converts the API pull URL embedded in check_run deliveries
// into the canonical html_url used as the record key.
func checkRunHTMLURL(apiURL string) string {
	u := strings.Replace(apiURL, "/api/v3/repos/", "/", 1)
	return strings.Replace(u, "/pulls/", "/pull/", 1)
}

// prNumberFromURL parses the trailing number of a pull URL.
func prNumberFromURL(u string) int {
	i := strings.LastIndexByte(u, '/')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(u[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func (r *Router) handleStatus(ctx context.Context, p models.WebhookPayload, deliveryID string, logger *slog.Logger) error {
	number, err := r.gh.PRNumberForCommit(ctx, p.Repository.URL, p.Commit.SHA)
	if err != nil {
		logger.Warn("commit to PR resolution failed", "sha", p.Commit.SHA, "error", err)
		return nil
	}
	htmlURL := p.Repository.HTMLURL + "/pull/" + strconv.Itoa(number)

	rec := store.Record{
		"html_url":           htmlURL,
		"event":              "status",
		"action":             p.Action,
		"delivery_id":        deliveryID,
		"owner":              p.Repository.Owner.Login,
		"repo_name":          p.Repository.Name,
		"pr_number":          number,
		"status_state":       p.State,
		"status_description": p.Description,
		"status_created_at":  p.CreatedAt,
	}

	// Duration is measured from the earliest status timestamp already stored
	// for this PR to the delivery's updated_at.
	if prev, err := r.store.GetRecord(ctx, htmlURL); err != nil {
		logger.Warn("record lookup failed", "error", err)
	} else if prev != nil {
		if start, ok := prev["status_created_at"].(string); ok && start != "" {
			if d, ok := durationSeconds(start, p.UpdatedAt); ok {
				rec["status_duration"] = d
				rec["status_created_at"] = start
			}
		}
	}

	r.store.UpsertAsync(rec)
	return nil
}

// durationSeconds returns the elapsed whole seconds between two RFC3339
// timestamps.
func durationSeconds(start, end string) (int, bool) {
	t0, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return 0, false
	}
	t1, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return 0, false
	}
	return int(t1.Sub(t0).Seconds()), true
}

// postOrReplace updates the bot's existing review comment on the PR, or
// creates one when none exists. One PR never accumulates multiple bot
// reviews.
func (r *Router) postOrReplace(ctx context.Context, repoURL string, number int, body string) error {
	comments, err := r.gh.Comments(ctx, repoURL, number)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	for _, c := range comments {
		if strings.EqualFold(c.User.Login, r.botUser) {
			return r.gh.UpdateComment(ctx, repoURL, c.ID, body)
		}
	}
	return r.gh.CreateComment(ctx, repoURL, number, body)
}

// baseRecord flattens the common pull_request fields of a delivery.
func (r *Router) baseRecord(p models.WebhookPayload, event, deliveryID string) store.Record {
	pr := p.PullRequest
	mergeable := ""
	if pr.Mergeable != nil {
		mergeable = fmt.Sprintf("%v", pr.Mergeable)
	}
	rec := store.Record{
		"html_url":         pr.HTMLURL,
		"event":            event,
		"action":           p.Action,
		"delivery_id":      deliveryID,
		"owner":            p.Repository.Owner.Login,
		"repo_name":        p.Repository.Name,
		"repo_url":         p.Repository.URL,
		"pr_number":        pr.Number,
		"title":            pr.Title,
		"pr_body":          pr.Body,
		"user":             pr.User.Login,
		"ldap_dn":          pr.User.LdapDN,
		"base_branch":      pr.Base.Ref,
		"head_branch":      pr.Head.Ref,
		"state":            pr.State,
		"created_at":       pr.CreatedAt,
		"updated_at":       pr.UpdatedAt,
		"closed_at":        pr.ClosedAt,
		"merged_at":        pr.MergedAt,
		"commits":          pr.Commits,
		"additions":        pr.Additions,
		"deletions":        pr.Deletions,
		"changed_files":    pr.ChangedFiles,
		"comments":         pr.Comments,
		"review_comments":  pr.ReviewComments,
		"merged":           pr.Merged,
		"mergeable":        mergeable,
		"merge_commit_sha": pr.MergeCommitSHA,
	}
	if d, ok := durationSeconds(pr.CreatedAt, pr.ClosedAt); ok {
		rec["opened_duration"] = d
	}
	return rec
}
