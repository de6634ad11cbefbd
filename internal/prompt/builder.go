// Package prompt assembles review questions for the AI gateway. Every
// builder commits the model to the same output contract: a structured answer
// whose last line is exactly one of low / medium / high. The pipeline's risk
// parser depends on that line, so the instruction text here must not drift.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/rules"
)

// Builder produces the review question and the failure-path checklist for
// one project variant. Variants differ in checklist text and rule-citation
// formatting; the risk-token output contract is shared.
type Builder interface {
	// Review builds the full review question from the request and the
	// applicable rule subset.
	Review(req models.ReviewRequest, ruleSet rules.Index) string

	// Checklist is the variant's checklist markdown, used both inside
	// variant prompts and as the body of the failure template.
	Checklist() string
}

// ForProject selects the builder variant for a repository owner. Unknown
// owners get the default builder.
func ForProject(owner string) Builder {
	switch owner {
	case "chy-e0x-25-zcu", "gee-crx-24-zcu":
		return &zonalBuilder{}
	default:
		return &defaultBuilder{}
	}
}

// FailureTemplate is the fixed body posted when no usable review is
// available, regardless of why.
func FailureTemplate(b Builder) string {
	return "*Due to multiple reasons, no code review from AI is available.*\n\n" + b.Checklist()
}

// mergeInstruction is the shared risk-assessment contract appended to every
// review prompt.
func mergeInstruction(locale string) string {
	if locale == LocaleZH {
		return "## 合并风险评估规则：\n" +
			"- low：代码规范好，变更范围小，无明显风险。\n" +
			"- medium：存在少量规范问题或潜在风险，但可以接受。\n" +
			"- high：存在严重规范问题、潜在错误或设计缺陷，不建议直接合并。\n" +
			"请根据你的整体分析，**在最终一行只输出一个单词字符作为合并风险结果（low / medium / high）**，不要输出多余内容或解释。"
	}
	return "## Merge Risk Assessment Rules:\n" +
		"- low: Good code standards, small change scope, no obvious risks.\n" +
		"- medium: A few standard issues or potential risks exist but are acceptable.\n" +
		"- high: Serious standard issues, potential errors, or design flaws exist; direct merging is not recommended.\n" +
		"Based on your overall analysis, **output only a single word character as the final merge risk result (low / medium / high) in the last line**, without any extra content or explanations."
}

// ticketOrNone substitutes the localized "none" marker for empty ticket text.
func ticketOrNone(detail, locale string) string {
	if detail != "" {
		return detail
	}
	if locale == LocaleZH {
		return "无"
	}
	return "None"
}

// RulesBlock renders a filtered rule subset into prompt text. Keys are
// sorted so the same inputs always produce the same prompt.
func RulesBlock(ruleSet rules.Index, locale string) string {
	keys := make([]string, 0, len(ruleSet))
	for k := range ruleSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, filename := range keys {
		entry := ruleSet[filename]
		if locale == LocaleZH {
			sb.WriteString(fmt.Sprintf("文件：%s\n", filename))
			for i, rule := range entry.CodeRules {
				chapter := ""
				if i < len(entry.CodeRuleChapters) {
					chapter = entry.CodeRuleChapters[i]
				}
				sb.WriteString(fmt.Sprintf("  规则编号: %s，章节: %s\n", rule, chapter))
			}
			for _, desc := range entry.Descriptions {
				sb.WriteString(fmt.Sprintf("  说明: %s\n", desc))
			}
		} else {
			sb.WriteString(fmt.Sprintf("File: %s\n", filename))
			for i, rule := range entry.CodeRules {
				chapter := ""
				if i < len(entry.CodeRuleChapters) {
					chapter = entry.CodeRuleChapters[i]
				}
				sb.WriteString(fmt.Sprintf("  Code Rules: %s, Code Rules Chapters: %s\n", rule, chapter))
			}
			for _, desc := range entry.Descriptions {
				sb.WriteString(fmt.Sprintf("  Descriptions: %s\n", desc))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// PostCheckQuestion builds the secondary-model question that scores a
// completed review. The expected reply format is "<score>,<explanation>".
func PostCheckQuestion(reviewPrompt, reviewResult, locale string) string {
	if locale == LocaleZH {
		return "你是一个代码审核机器人，接下来我将提供一个输入给其他AI模型的Prompt：\n" +
			reviewPrompt + "\n" +
			"以及其他AI返回的结果：\n" +
			reviewResult + "\n" +
			"请评估该代码审核结果的准确性，指出是否存在明显错误。\n" +
			"请返回评分（0-100分）及简短理由。\n" +
			"请按以下格式返回：分数，理由。请不要添加其他内容。"
	}
	return "You are a code review assistant. Below is a prompt provided to another AI model:\n" +
		reviewPrompt + "\n" +
		"and the response received from the other AI:\n" +
		reviewResult + "\n" +
		"Please assess the accuracy of the code review result and identify any obvious errors.\n" +
		"Return a score (0-100) along with a brief explanation.\n" +
		"Please respond in the following format: score, explanation. Do not include anything else."
}

// maxReplyDiff bounds the diff text embedded in conversational replies.
const maxReplyDiff = 300_000

// ReplyQuestion builds the conversational prompt used when a user mentions
// the bot in a PR comment thread.
func ReplyQuestion(userName, title, repo, diff, comments, locale string, now time.Time) string {
	if len(diff) > maxReplyDiff {
		diff = diff[:maxReplyDiff] + "\n...\n*The diff content is too long, has been truncated.*"
	}

	shanghai := now.UTC().Add(8 * time.Hour)
	_, week := shanghai.ISOWeek()
	stamp := shanghai.Format("2006-01-02 15:04:05")

	if locale == LocaleZH {
		return fmt.Sprintf(`# 目标 (Goal)
用户%s基于你的代码审查意见进行了回复，请你基于以下信息回答该用户，保持专业、客观、友好的语气和称谓。除非用户指出回复语言，否则使用中文回复。

# 该用户评论以及评论历史 (User Comment and History)
%s

# 上下文信息 (Contextual Information)
1. 当前时间日期为 %s Shanghai Time，当前为第 %d 周。
2. **该PR的标题**
%s
3. **该PR的具体改动(Git Diff)，仅列出仓库 %s 的变更内容**:
%s
`, userName, comments, stamp, week, title, repo, diff)
	}
	return fmt.Sprintf(`# Goal
The user %s has replied to your code review comments. Please respond to the user based on the information below, maintaining a professional, objective, and friendly tone and salutation. Unless the user specifies a reply language, respond in English.

# User Comment and History
%s

# Contextual Information
1. Current date and time: %s Shanghai Time, week %d.
2. **PR Title**
%s
3. **Specific changes (Git Diff), only for repository %s:**
%s
`, userName, comments, stamp, week, title, repo, diff)
}
