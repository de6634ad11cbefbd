package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revbot/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <owner> <repo>",
	Short: "Show the rule filter table for a repository",
	Long: `Shows the precomputed compliance rule table that augments review
prompts for the given repository. Tables live under lib_dir as
<owner>/rules/<repo>.json.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rulesRun(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func rulesRun(owner, repo string) error {
	libDir := viper.GetString("lib_dir")

	idx, err := rules.Load(libDir, owner, repo)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		ui.Info("No rule table for %s/%s under %s", owner, repo, libDir)
		return nil
	}

	table := ui.Table([]string{"File", "Rules", "Chapters", "Descriptions"})
	for name, entry := range idx {
		table.Append([]string{
			name,
			strings.Join(entry.CodeRules, ", "),
			strings.Join(entry.CodeRuleChapters, ", "),
			fmt.Sprintf("%d", len(entry.Descriptions)),
		})
	}
	table.Render()
	return nil
}
