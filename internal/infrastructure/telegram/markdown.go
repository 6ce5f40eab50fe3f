package telegram

import "strings"

const markdownV2Special = "_*[]()~>#+-=|{}.!"

// EscapeMarkdownV2 escapes MarkdownV2 control characters outside back-tick
// code spans. Text inside code spans is left as is.
func EscapeMarkdownV2(text string) string {
	parts := strings.Split(text, "`")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = escapePlain(parts[i])
	}
	return strings.Join(parts, "`")
}

func escapePlain(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
