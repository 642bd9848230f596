package app

import (
	"strings"
	"unicode"
)

// maxUsernameLen is the hosting platform's username length limit.
const maxUsernameLen = 16

// SanitizeUsername derives a hosting username from a domain name:
// lowercase, alphanumeric only, must start with a letter, at most 16
// characters. "my-site42.com" becomes "mysite42".
func SanitizeUsername(domainName string) string {
	base, _, _ := strings.Cut(domainName, ".")

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if b.Len() == 0 && !unicode.IsLower(r) {
			// Leading digits are dropped until a letter starts the name.
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxUsernameLen {
			break
		}
	}
	return b.String()
}
