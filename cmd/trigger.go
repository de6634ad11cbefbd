package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	triggerAPIBase  string
	triggerHTMLBase string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <owner> <repo> <pr-number>",
	Short: "Run a review for a pull request without a webhook",
	Long: `Fetches the pull request from the GitHub API and runs the full
review, posting the result as a PR comment and storing the record,
exactly as an 'opened' webhook delivery would.`,
	Args: cobra.ExactArgs(3),
	RunE: triggerRun,
}

func init() {
	triggerCmd.Flags().StringVar(&triggerAPIBase, "api-base", "https://api.github.com", "GitHub API base URL")
	triggerCmd.Flags().StringVar(&triggerHTMLBase, "html-base", "https://github.com", "GitHub web base URL")
	rootCmd.AddCommand(triggerCmd)
}

func triggerRun(cmd *cobra.Command, args []string) error {
	owner, repo := args[0], args[1]
	var number int
	if _, err := fmt.Sscanf(args[2], "%d", &number); err != nil || number <= 0 {
		return fmt.Errorf("invalid pull request number: %s", args[2])
	}

	rt, s, err := buildRouter()
	if err != nil {
		return err
	}
	defer s.Close()

	apiBase := strings.TrimRight(triggerAPIBase, "/")
	htmlBase := strings.TrimRight(triggerHTMLBase, "/")
	repoAPIURL := fmt.Sprintf("%s/repos/%s/%s", apiBase, owner, repo)
	repoHTMLURL := fmt.Sprintf("%s/%s/%s", htmlBase, owner, repo)

	ui.Info("Reviewing %s/%s#%d", owner, repo, number)
	if dryRun {
		ui.DryRunMsg("Would review %s/pull/%d", repoHTMLURL, number)
		return nil
	}

	if err := rt.Trigger(cmd.Context(), repoAPIURL, repoHTMLURL, owner, repo, number); err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	ui.Success("Review posted for %s/pull/%d", repoHTMLURL, number)
	return nil
}
