package privacy

import "strings"

// MaskSecret hides a credential for logging, keeping only the last four
// characters. Short values are masked entirely.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// MaskContent truncates message content for debug logging so full
// message bodies never land in log output.
func MaskContent(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 32
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
