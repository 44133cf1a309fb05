package aicoder

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "ai-code-mother/pkg/errors"
)

// MaxInputRunes 单条用户消息的最大长度
const MaxInputRunes = 1000

var sensitiveWords = []string{
	"忽略之前的指令",
	"忽略以上内容",
	"忽略上述指令",
	"破解",
	"越狱",
	"绕过限制",
	"ignore previous instructions",
	"ignore above",
	"jailbreak",
	"bypass",
}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:previous|above|all)\s+(?:instructions?|commands?|prompts?)`),
	regexp.MustCompile(`(?i)(?:forget|disregard)\s+(?:everything|all)\s+(?:above|before)`),
	regexp.MustCompile(`(?i)(?:pretend|act|behave)\s+(?:as|like)\s+(?:if|you\s+are)`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)new\s+(?:instructions?|commands?|prompts?)\s*:`),
}

// CheckInput 输入护轨，在消息进入模型之前执行
func CheckInput(message string) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.New(apperrors.CodePromptRejected, "输入内容不能为空")
	}
	if utf8.RuneCountInString(message) > MaxInputRunes {
		return apperrors.Newf(apperrors.CodePromptRejected, "输入内容过长，不要超过 %d 字", MaxInputRunes)
	}

	lower := strings.ToLower(message)
	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return apperrors.New(apperrors.CodePromptRejected, "输入包含不当内容，请修改后重试")
		}
	}
	for _, p := range injectionPatterns {
		if p.MatchString(message) {
			return apperrors.New(apperrors.CodePromptRejected, "检测到恶意输入，请求被拒绝")
		}
	}
	return nil
}
