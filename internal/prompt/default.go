package prompt

import (
	"fmt"

	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/rules"
)

// defaultBuilder is the plain review prompt used for projects without a
// variant-specific checklist. Rule citations, when present, are appended as
// a dedicated instruction section.
type defaultBuilder struct{}

func (b *defaultBuilder) Review(req models.ReviewRequest, ruleSet rules.Index) string {
	var instruction, rulesSection string

	if req.Locale == LocaleZH {
		instruction = "# 以下修改属于基于AI的代码自动审核项目，请根据 Jira 需求和对应的 Github Pull Request 变更进行代码审查，并评估合并风险。\n" +
			"## 审查要求：\n" +
			"1. 必须用中文回答。\n" +
			"2. 对发现的问题可适当提供修改建议。\n" +
			"3. 输出结果必须严格按照以下结构组织：\n" +
			"   **1. 总体评价**：对整体代码质量、规范符合度、潜在风险进行综合评价。\n" +
			"   **2. 逐一文件建议和分析**：按文件逐个分析变更内容，指出问题、规范违规情况及修改建议。\n" +
			"   **3. 总结**：总结主要发现、风险等级及后续建议。\n" +
			"   **4. 合并风险评估**：在最后一行只输出一个单词字符表示风险等级（low / medium / high），不要有解释或额外内容。\n"
		if len(ruleSet) > 0 {
			rulesSection = "## 以下文件存在特殊审核规则，请参考对应的规则编号及章节：\n" + RulesBlock(ruleSet, req.Locale) + "\n"
		}
		return fmt.Sprintf("%s\n%s# 本次变更的 Jira 需求：\n%s\n\n# 本次变更的目标分支：\n%s\n\n# 仓库 %s 的 Pull Request 变更内容如下：\n%s\n\n%s",
			instruction, rulesSection, ticketOrNone(req.JiraDetail, req.Locale), req.BaseBranch, req.Repo, req.Diff, mergeInstruction(req.Locale))
	}

	instruction = "# The following changes are part of an AI-based code review project. Please conduct a code review based on the Jira requirements and the corresponding GitHub Pull Request changes, and assess the merge risk.\n" +
		"## Review Requirements:\n" +
		"1. Must respond in English.\n" +
		"2. Provide modification suggestions for identified issues as appropriate.\n" +
		"3. The output must be strictly organized according to the following structure:\n" +
		"   **1. Overall Evaluation**: A comprehensive evaluation of overall code quality, compliance with standards, and potential risks.\n" +
		"   **2. File-by-File Suggestions and Analysis**: Analyze the changes file by file, pointing out issues, standard violations, and modification suggestions.\n" +
		"   **3. Summary**: Summarize the main findings, risk level, and follow-up recommendations.\n" +
		"   **4. Merge Risk Assessment**: At the very end, output only a single word character indicating the risk level (low / medium / high), without explanations or additional content.\n"
	if len(ruleSet) > 0 {
		rulesSection = "## The following files have special review rules; refer to the cited rule numbers and chapters:\n" + RulesBlock(ruleSet, req.Locale) + "\n"
	}
	return fmt.Sprintf("%s\n%s# The Jira requirement for this change:\n%s\n\n# The target branch for this change:\n%s\n\n# The Pull Request changes for repository %s are as follows:\n%s\n\n%s",
		instruction, rulesSection, ticketOrNone(req.JiraDetail, req.Locale), req.BaseBranch, req.Repo, req.Diff, mergeInstruction(req.Locale))
}

func (b *defaultBuilder) Checklist() string {
	return "# Checklist is not configured for this project.\n\n" +
		"# Please re-trigger the review or contact the RevBot maintainers.\n"
}
