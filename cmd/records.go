package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/revbot/internal/output"
	"github.com/joescharf/revbot/internal/store"
)

var recordsLimit int

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored review records",
	Long: `Inspect the pull request review records persisted by the webhook
server. Running bare 'revbot records' is the same as 'revbot records list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordsListRun()
	},
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent review records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordsListRun()
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <pr-url>",
	Short: "Show the full record for one pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordsShowRun(args[0])
	},
}

func init() {
	recordsListCmd.Flags().IntVarP(&recordsLimit, "limit", "l", 20, "Maximum rows to show")
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	rootCmd.AddCommand(recordsCmd)
}

func recordsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	records, err := s.ListRecords(rootCmd.Context(), recordsLimit)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	if len(records) == 0 {
		ui.Info("No review records yet")
		return nil
	}

	table := ui.Table([]string{"PR", "Title", "Risk", "Score", "Jira", "Last Edit"})
	for _, rec := range records {
		table.Append([]string{
			recordString(rec, "html_url"),
			truncate(recordString(rec, "title"), 40),
			output.RiskColor(recordString(rec, "ai_risk_level")),
			scoreCell(rec),
			recordString(rec, "jira_id"),
			recordString(rec, "last_edit"),
		})
	}
	table.Render()
	return nil
}

func recordsShowRun(url string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	rec, err := s.GetRecord(rootCmd.Context(), url)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no record for %s", url)
	}

	ui.Info("Record for %s", url)
	fmt.Fprintln(ui.Out)

	for _, key := range recordDisplayOrder {
		if val, ok := rec[key]; ok && val != nil && val != "" {
			fmt.Fprintf(ui.Out, "  %-22s %v\n", key, val)
		}
	}

	if review := recordString(rec, "ai_review"); review != "" {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, review)
	}
	return nil
}

// recordDisplayOrder avoids dumping the record map in random key order.
var recordDisplayOrder = []string{
	"html_url", "event", "action", "title", "user", "locale",
	"base_branch", "head_branch", "state", "merged",
	"jira_id", "jira_link", "jira_summary",
	"ai_risk_level", "post_check_score", "post_check_reason",
	"check_run_name", "check_run_status", "check_run_conclusion",
	"status_state", "status_duration",
	"review_state", "approval_satisfied", "code_owner_approved",
	"last_edit",
}

func recordString(rec store.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func scoreCell(rec store.Record) string {
	raw := recordString(rec, "post_check_score")
	if raw == "" {
		return ""
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return raw
	}
	return output.ScoreColor(score)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
