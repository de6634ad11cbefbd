package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/rules"
)

func sampleRequest(locale string) models.ReviewRequest {
	return models.ReviewRequest{
		Owner:      "acme",
		Repo:       "firmware",
		PRNumber:   42,
		BaseBranch: "main",
		Diff:       "diff --git a/a.c b/a.c\n+int x;",
		JiraDetail: "Summary: Add driver init",
		Locale:     locale,
	}
}

func TestForProject_VariantSelection(t *testing.T) {
	_, isZonal := ForProject("gee-crx-24-zcu").(*zonalBuilder)
	assert.True(t, isZonal)
	_, isZonal = ForProject("chy-e0x-25-zcu").(*zonalBuilder)
	assert.True(t, isZonal)
	_, isDefault := ForProject("someone-else").(*defaultBuilder)
	assert.True(t, isDefault)
}

func TestReview_OutputContractPresent(t *testing.T) {
	// The closing contract line must survive in every builder and locale:
	// the pipeline's parser reads the last non-blank line of the answer.
	cases := []struct {
		name    string
		builder Builder
		locale  string
		want    string
	}{
		{"default/zh", &defaultBuilder{}, LocaleZH, "（low / medium / high）"},
		{"default/en", &defaultBuilder{}, LocaleEN, "(low / medium / high)"},
		{"zonal/zh", &zonalBuilder{}, LocaleZH, "（low / medium / high）"},
		{"zonal/en", &zonalBuilder{}, LocaleEN, "(low / medium / high)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.builder.Review(sampleRequest(tc.locale), rules.Index{})
			assert.Contains(t, q, tc.want)
			assert.Contains(t, q, "firmware")
			assert.Contains(t, q, "Add driver init")
		})
	}
}

func TestReview_TicketFallsBackToNone(t *testing.T) {
	req := sampleRequest(LocaleEN)
	req.JiraDetail = ""
	q := (&defaultBuilder{}).Review(req, rules.Index{})
	assert.Contains(t, q, "The Jira requirement for this change:\nNone")
}

func TestRulesBlock_Deterministic(t *testing.T) {
	ruleSet := rules.Index{
		"b.c": {CodeRules: []string{"MISRA 8.4"}, CodeRuleChapters: []string{"8"}},
		"a.c": {CodeRules: []string{"MISRA 10.3"}, CodeRuleChapters: []string{"10"}, Descriptions: []string{"implicit conversion"}},
	}
	first := RulesBlock(ruleSet, LocaleEN)
	for range 10 {
		require.Equal(t, first, RulesBlock(ruleSet, LocaleEN))
	}
	assert.Less(t, strings.Index(first, "a.c"), strings.Index(first, "b.c"))
	assert.Contains(t, first, "Code Rules: MISRA 10.3, Code Rules Chapters: 10")
	assert.Contains(t, first, "Descriptions: implicit conversion")
}

func TestZonalReview_EmbedsRulesAndChecklist(t *testing.T) {
	ruleSet := rules.Index{
		"a.c": {CodeRules: []string{"MISRA 10.3"}, CodeRuleChapters: []string{"10"}},
	}
	q := (&zonalBuilder{}).Review(sampleRequest(LocaleZH), ruleSet)
	assert.Contains(t, q, "MISRA_2012")
	assert.Contains(t, q, "规则编号: MISRA 10.3，章节: 10")
	assert.Contains(t, q, "Checklist Item No.")
	assert.Contains(t, q, "volatile")
}

func TestFailureTemplate(t *testing.T) {
	body := FailureTemplate(&zonalBuilder{})
	assert.True(t, strings.HasPrefix(body, "*Due to multiple reasons, no code review from AI is available.*"))
	assert.Contains(t, body, "Checklist Item No.")
}

func TestRiskDisplay(t *testing.T) {
	assert.Equal(t, "低", RiskDisplay(models.RiskLow, LocaleZH))
	assert.Equal(t, "中等", RiskDisplay(models.RiskMedium, LocaleZH))
	assert.Equal(t, "高", RiskDisplay(models.RiskHigh, LocaleZH))
	assert.Equal(t, "medium", RiskDisplay(models.RiskMedium, LocaleEN))
	assert.Equal(t, "", RiskDisplay(models.RiskInvalid, LocaleZH))
}

func TestPostCheckQuestion_Format(t *testing.T) {
	q := PostCheckQuestion("the prompt", "the answer", LocaleEN)
	assert.Contains(t, q, "the prompt")
	assert.Contains(t, q, "the answer")
	assert.Contains(t, q, "score, explanation")
}

func TestReplyQuestion_TruncatesDiff(t *testing.T) {
	huge := strings.Repeat("x", maxReplyDiff+100)
	q := ReplyQuestion("alice", "Fix driver", "firmware", huge, "thread", LocaleEN, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.Contains(t, q, "has been truncated")
	assert.Contains(t, q, "alice")
	// UTC noon is 20:00 in the fixed UTC+8 display zone.
	assert.Contains(t, q, "2025-03-01 20:00:00")
}
