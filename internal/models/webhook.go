package models

// GitHub webhook payload types. Only the fields the router reads are mapped;
// the rest of the delivery body is ignored.

// User is the author of a PR, comment, or review.
type User struct {
	Login  string `json:"login"`
	LdapDN string `json:"ldap_dn"`
}

// Repository identifies the repo a delivery belongs to.
type Repository struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	Owner   User   `json:"owner"`
}

// Ref is a branch reference on a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest is the pull_request object of a delivery.
type PullRequest struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	State          string `json:"state"`
	HTMLURL        string `json:"html_url"`
	DiffURL        string `json:"diff_url"`
	PatchURL       string `json:"patch_url"`
	Labels         []any  `json:"labels"`
	Mergeable      any    `json:"mergeable"`
	AutoMerge      any    `json:"auto_merge"`
	Merged         bool   `json:"merged"`
	Commits        int    `json:"commits"`
	Comments       int    `json:"comments"`
	ReviewComments int    `json:"review_comments"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	ChangedFiles   int    `json:"changed_files"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	ClosedAt       string `json:"closed_at"`
	MergedAt       string `json:"merged_at"`
	MergeCommitSHA string `json:"merge_commit_sha"`
	User           User   `json:"user"`
	Head           Ref    `json:"head"`
	Base           Ref    `json:"base"`
}

// Issue appears in issue_comment deliveries; for PR comment threads its
// number is the PR number.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Comment is an issue or PR comment.
type Comment struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	UpdatedAt string `json:"updated_at"`
	User      User   `json:"user"`
}

// Review is a pull_request_review submission.
type Review struct {
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at"`
	User        User   `json:"user"`
}

// CheckRunOutput is the output block of a check_run delivery.
type CheckRunOutput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Text    string `json:"text"`
}

// CheckRunPR is the abbreviated PR reference inside check_run deliveries.
// Its URL is an API URL, not the html_url.
type CheckRunPR struct {
	URL string `json:"url"`
}

// CheckSuite is the suite a check_run belongs to.
type CheckSuite struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// CheckRun is the check_run object of a delivery.
type CheckRun struct {
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	Conclusion   string         `json:"conclusion"`
	StartedAt    string         `json:"started_at"`
	CompletedAt  string         `json:"completed_at"`
	DetailsURL   string         `json:"details_url"`
	Output       CheckRunOutput `json:"output"`
	PullRequests []CheckRunPR   `json:"pull_requests"`
	CheckSuite   CheckSuite     `json:"check_suite"`
}

// Commit appears in status deliveries.
type Commit struct {
	SHA string `json:"sha"`
}

// Organization appears on deliveries from org-owned repositories.
type Organization struct {
	URL string `json:"url"`
}

// WebhookPayload is the decoded body of a GitHub webhook delivery. The event
// type itself travels in the X-GitHub-Event header, not the body.
type WebhookPayload struct {
	Action       string       `json:"action"`
	Repository   Repository   `json:"repository"`
	Organization Organization `json:"organization"`
	PullRequest  PullRequest  `json:"pull_request"`
	Issue        Issue        `json:"issue"`
	Comment      Comment      `json:"comment"`
	Review       Review       `json:"review"`
	CheckRun     CheckRun     `json:"check_run"`
	Commit       Commit       `json:"commit"`

	// status event fields live at the top level of the body
	State       string `json:"state"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
