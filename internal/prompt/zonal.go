package prompt

import (
	"fmt"

	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/rules"
)

// zonalBuilder is the automotive zonal-controller variant. It adds a
// MISRA/CERT compliance section, the per-file rule dictionary, and a fixed
// review checklist that the model must fill in as a table.
type zonalBuilder struct{}

// checklistItems are the embedded-software review questions, shared between
// the prompt instructions and the failure-path table.
var checklistItems = []string{
	"Are all shared variables (global, function and file scoped static variables) used in different preemptive tasks (interrupt, preemptive tasks from the scheduler) or hardware register declared as volatile? Yes => OK",
	"Are all individual or group of coherent shared variables protected to avoid access conflicts? Yes => OK",
	"Is the exit condition of each loop robust? Does each loop waiting for an event have an alternate escape mechanism (time-out, ...)? Yes => OK",
	"Are there any multiple assignments in the same expression (e.g. a = b = c;)? NO => OK",
	"Is there any bit fields access of a larger data type which relies on the way that the bit fields are stored? NO => OK",
	"Is there any pointer arithmetic applied to pointers which do not address an array or an array element? NO => OK (ISO 26262-6:2018 chapter 8.4.5 table 6)",
	"Is there any assignment or memory copy operation of overlapping objects or memory areas/regions? NO => OK (ISO 26262-6:2018 chapter 8.4.5 table 6)",
	"Is each macro/function-call which disables interrupts followed by restoring the previous level in all cases? YES => OK",
	"Are all interrupts acknowledged in all paths of the ISR? YES => OK",
	"Are there any assertions in code which might have side effects? NO => OK",
	"Are there any assertions checking for conditions that must be handled in production code? NO => OK",
	"Are there static local variables defined? NO => OK",
	"Are all variables allocated specific section appropriately initialized? YES => OK",
	"Are all variables which cannot be cached declared in the VAR_CLEARED_NO_CACHEABLE or VAR_INIT_NO_CACHEABLE sections? YES => OK",
	"Does files_properties.xml updated for the new added code files (.h, .c, .cpp) to avoid N/A in SCCE? YES => OK",
	"Is there any data buffer/array in the submitted code that needs to determine the boundary? Is the determination made explicitly in the code? YES => OK",
	"Have checklists for updating variants parameter .xlsx and .csv files been done? YES => OK",
}

func checklistInstruction(locale string) string {
	var sb string
	if locale == LocaleZH {
		sb = "请根据以下代码审查检查项（Checklist）对 Github Pull Request 变更的代码进行逐项检查，并以表格形式返回结果。\n\n" +
			"【输出格式要求】：\n" +
			"- 每一行对应一个检查项\n" +
			"- 列包括：Checklist Item No. | Checklist Descriptions | Status (OK / NOK / N/A) | Comments\n" +
			"- 当 Status 为 NOK 或 N/A 时，必须在 Comments 中写明原因或说明，并加粗Status的NOK 或 N/A\n" +
			"- 当 Status 为 OK 时，Comments 留空\n\n" +
			"【检查项列表】：\n"
	} else {
		sb = "Check the Pull Request changes against each of the following review checklist items and return the result as a table.\n\n" +
			"Output format:\n" +
			"- One row per checklist item\n" +
			"- Columns: Checklist Item No. | Checklist Descriptions | Status (OK / NOK / N/A) | Comments\n" +
			"- When Status is NOK or N/A, explain why in Comments and bold the status\n" +
			"- When Status is OK, leave Comments empty\n\n" +
			"Checklist items:\n"
	}
	for i, item := range checklistItems {
		sb += fmt.Sprintf("%d. %s\n", i+1, item)
	}
	return sb
}

func (b *zonalBuilder) Review(req models.ReviewRequest, ruleSet rules.Index) string {
	rulesBlock := RulesBlock(ruleSet, req.Locale)

	if req.Locale == LocaleZH {
		instruction := "# 以下修改属于汽车嵌入式软件开发项目，请根据 Jira 需求和对应的 Github Pull Request 变更进行代码审查，并评估合并风险。\n" +
			"## 审查要求：\n" +
			"1. 必须用中文回答。\n" +
			"2. 对发现的问题可适当提供修改建议。\n" +
			"3. 必须对每个文件检查以下代码规范并指出违反之处，必须以表格的方式呈现，必须在表格前和表格后空行，表格的列包括：Code Rules | Comments：\n" +
			"   - MISRA_2012\n" +
			"   - CERT_C_2016\n" +
			"4. 若代码中包含以下格式的注释：\n" +
			"   /* ANALYSIS_REPORT_JUSTIFICATION (...) !--> TOOL_NUMBER(...) GUIDELINE(...) ... <--! */\n" +
			"   则根据 /* GUIDELINE(...) ... */ 中的特殊规则来审核相关代码。\n" +
			"5. 以下的字典包含了某些文件的特殊审核规则，若修改的文件或者文件路径出现在如下的字典中，请参考与其对应的代码特殊规则及对应的章节：\n" +
			rulesBlock + "\n" +
			"6. 如果发现某些修改在规范、标准或技术知识方面存在明显欠缺，请在审查意见中提供相关资料或官方文档链接，帮助开发者补齐知识短板。\n" +
			"7. 输出结果必须严格按照以下结构组织：\n" +
			"   **1. 总体评价**：对整体代码质量、规范符合度、潜在风险进行综合评价。\n" +
			"   **2. 逐一文件建议和分析**：按文件逐个分析变更内容，指出问题、规范违规情况及修改建议。\n" +
			"   **3. 总结**：总结主要发现、风险等级及后续建议。\n" +
			"   **4. Checklist**：使用下方提供的检查项，按表格格式填写。\n" +
			"   **5. 合并风险评估**：在最后一行只输出一个单词字符表示风险等级（low / medium / high），不要有解释或额外内容。\n"

		return fmt.Sprintf("%s\n# 本次变更的 Jira 需求：\n%s\n\n# 本次变更的目标分支：\n%s\n\n# 仓库 %s 的 Pull Request 变更内容如下：\n%s\n\n%s\n\n%s",
			instruction, ticketOrNone(req.JiraDetail, req.Locale), req.BaseBranch, req.Repo, req.Diff,
			checklistInstruction(req.Locale), mergeInstruction(req.Locale))
	}

	instruction := "# The following changes belong to the automotive embedded software development project. Please review the code based on the Jira requirements and the corresponding Github Pull Request changes, and assess the merge risk.\n" +
		"## Review Requirements:\n" +
		"1. Must answer in English.\n" +
		"2. Provide modification suggestions for identified issues.\n" +
		"3. Check each file for compliance with the following code standards and point out violations in a tabular format, with a blank line before and after the table. The columns should include: Code Rules | Comments:\n" +
		"   - MISRA_2012\n" +
		"   - CERT_C_2016\n" +
		"4. If the code contains comments in the following format:\n" +
		"   /* ANALYSIS_REPORT_JUSTIFICATION (...) !--> TOOL_NUMBER(...) GUIDELINE(...) ... <--! */\n" +
		"   review the related code against the special rules in /* GUIDELINE(...) ... */.\n" +
		"5. The following dictionary contains special review rules for certain files; when a changed file or path appears in it, refer to the corresponding rules and chapters:\n" +
		rulesBlock + "\n" +
		"6. If some changes show clear gaps in standards or technical knowledge, include links to relevant material or official documentation in the review comments.\n" +
		"7. The output must be strictly organized according to the following structure:\n" +
		"   **1. Overall Evaluation**: A comprehensive evaluation of overall code quality, compliance with standards, and potential risks.\n" +
		"   **2. File-by-File Suggestions and Analysis**: Analyze the changes file by file, pointing out issues, standard violations, and modification suggestions.\n" +
		"   **3. Summary**: Summarize the main findings, risk level, and follow-up recommendations.\n" +
		"   **4. Checklist**: Fill in the checklist items below in table format.\n" +
		"   **5. Merge Risk Assessment**: At the very end, output only a single word character indicating the risk level (low / medium / high), without explanations or additional content.\n"

	return fmt.Sprintf("%s\n# Jira requirement for this change:\n%s\n\n# Target branch for this change:\n%s\n\n# Pull Request changes for repository %s are as follows:\n%s\n\n%s\n\n%s",
		instruction, ticketOrNone(req.JiraDetail, req.Locale), req.BaseBranch, req.Repo, req.Diff,
		checklistInstruction(req.Locale), mergeInstruction(req.Locale))
}

func (b *zonalBuilder) Checklist() string {
	table := "Checklist Item No. | Checklist Descriptions | Status (OK / NOK / N/A) | Comments\n" +
		"--- | --- | --- | ---\n"
	for i, item := range checklistItems {
		table += fmt.Sprintf("%d | %s | ⬜ OK ⬜ NOK ⬜ N/A | \n", i+1, item)
	}
	return table
}
