package prompt

import "github.com/joescharf/revbot/internal/models"

// Locales supported by the prompt builders. Chinese is the default; the
// router switches to English for authors outside the CN directory tree.
const (
	LocaleZH = "zh"
	LocaleEN = "en"
)

// RiskDisplay returns the user-facing word for a risk level in the given
// locale. Invalid levels render as an empty string; callers on that path use
// the failure template instead.
func RiskDisplay(level models.RiskLevel, locale string) string {
	if locale == LocaleZH {
		switch level {
		case models.RiskLow:
			return "低"
		case models.RiskMedium:
			return "中等"
		case models.RiskHigh:
			return "高"
		}
		return ""
	}
	switch level {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
		return string(level)
	}
	return ""
}

// NoTicketDetail is the placeholder embedded in the prompt when no Jira
// context could be resolved.
func NoTicketDetail(locale string) string {
	if locale == LocaleZH {
		return "无相关Jira信息。"
	}
	return "No related Jira information."
}

// NoTitle is the fallback PR title.
func NoTitle(locale string) string {
	if locale == LocaleZH {
		return "无PR标题"
	}
	return "No PR Title"
}

// CannotReview is the fixed user-facing text substituted when provider error
// text is detected in a composed review.
func CannotReview(locale string) string {
	if locale == LocaleZH {
		return "*Review message from AI:*\n\n非常抱歉，由于上下文（PR改动和评论）过多或者网络连接出错，我无法对这次改动进行审查。"
	}
	return "*Review message from AI:*\n\nI'm sorry, but I cannot review this change due to excessive context (PR changes and comments) or network issues."
}

// CannotReply is the reply-flow analogue of CannotReview.
func CannotReply(locale string) string {
	if locale == LocaleZH {
		return "非常抱歉，由于上下文（PR改动和评论）过多或者网络连接出错，我无法回复你的评论。"
	}
	return "I'm sorry, but I cannot reply to your comment due to excessive context (PR changes and comments) or network issues."
}

// CannotFetchDiff explains a failed diff fetch to the end user.
func CannotFetchDiff(locale string) string {
	if locale == LocaleZH {
		return "该PR修改过多或者网络原因导致无法获取改动"
	}
	return "The PR has too many changes or network issues prevent fetching changes"
}
