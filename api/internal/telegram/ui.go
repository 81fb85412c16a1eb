package telegram

import (
	"regexp"
	"strings"

	"complexity-analyzer/api/internal/analysis"
)

// Telegram caps messages at 4096 chars. Fields are cut before escaping, which at most
// doubles them, so the formatted text stays under maxMessage.
const (
	maxMessage     = 4096
	maxField       = 150
	maxExplanation = 1700
)

// ```lang\n...```, язык необязателен
var userFenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+#.-]*[ \t]*\n?(.*?)```")

// codeFromMessage returns the first fenced block if the user sent one, otherwise the whole text.
func codeFromMessage(text string) string {
	if m := userFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func formatResult(res analysis.Result) string {
	var b strings.Builder
	b.WriteString("*Time complexity:* ")
	b.WriteString(esc(truncate(res.TimeComplexity, maxField)))
	b.WriteString("\n*Space complexity:* ")
	b.WriteString(esc(truncate(res.SpaceComplexity, maxField)))
	b.WriteString("\n\n*Explanation:*\n")
	b.WriteString(esc(truncate(res.Explanation, maxExplanation)))
	return b.String()
}

func formatPlain(res analysis.Result) string {
	return "Time complexity: " + truncate(res.TimeComplexity, maxField) +
		"\nSpace complexity: " + truncate(res.SpaceComplexity, maxField) +
		"\n\nExplanation:\n" + truncate(res.Explanation, maxExplanation)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}

// лёгкое экранирование для Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
