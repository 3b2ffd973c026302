package export

import (
	"strconv"
	"strings"
	"unicode"
)

const maxDownloadNameLen = 60

func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// DownloadName is the attachment file name offered for a GIF, derived from
// the prompt that produced it.
func DownloadName(prompt string, index int) string {
	base := SanitizeName(prompt, maxDownloadNameLen)
	base = strings.Join(strings.Fields(base), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "gif"
	}
	return base + "_" + strconv.Itoa(index) + ".gif"
}
