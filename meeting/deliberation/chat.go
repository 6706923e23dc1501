package deliberation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// 行首的 Markdown 记号与箇条書き符号
	chatLeadingMarkRe = regexp.MustCompile(`^\s*[#>\-\*・]+\s*`)
	chatSpaceRunRe    = regexp.MustCompile(`[ \t]+`)
)

// EnforceChatConstraints 把 LLM 输出整形成短对话：
// 去掉 Markdown 记号，按句切分并逐句截断到 maxChars（rune 计数），
// 最多保留 maxSentences 句。全部整形失败时退回开头 maxChars 字。
func EnforceChatConstraints(text string, maxSentences, maxChars int) string {
	if maxSentences <= 0 || maxChars <= 0 {
		return strings.TrimSpace(text)
	}

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = chatLeadingMarkRe.ReplaceAllString(line, "")
		line = chatSpaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	joined := strings.Join(cleaned, " ")
	if joined == "" {
		return ""
	}

	sentences := splitSentences(joined)
	if len(sentences) == 0 {
		return truncateChat(joined, maxChars)
	}
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	for i, s := range sentences {
		sentences[i] = truncateChat(s, maxChars)
	}
	return strings.Join(sentences, "\n")
}

// splitSentences 在句末标点（。！？と ASCII .!?）后切分。
// ASCII 标点只有后面跟空白时才视为句末，避免把小数点切碎。
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		boundary := false
		switch r {
		case '。', '！', '？':
			boundary = true
		case '.', '!', '?':
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\t' {
				boundary = true
			}
		}
		if boundary {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// truncateChat 按 rune 截断并补省略号。
func truncateChat(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars]) + "…"
}
