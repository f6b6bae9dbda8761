package text

import "strings"

// DefaultMaxLength 用户输入保留的最大字符数。
const DefaultMaxLength = 4000

// Normalize strips NUL characters, collapses whitespace runs into a single
// space, trims both ends and truncates the result to maxLen runes.
// Whitespace is whatever unicode.IsSpace reports (U+0085 yes, U+FEFF no).
// A non-positive maxLen falls back to DefaultMaxLength.
func Normalize(raw string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	cleaned := strings.ReplaceAll(raw, "\x00", "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	// 截断后末尾可能落在空格上，需要再次裁剪。
	return strings.TrimSpace(string(runes[:maxLen]))
}

// Length returns the number of characters in s.
func Length(s string) int {
	return len([]rune(s))
}
