package models

import (
	"strings"

	"github.com/mssola/useragent"
)

// SummarizeUserAgent reduces a raw User-Agent header to browser family, major
// version, and OS.
func SummarizeUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	major, _, _ := strings.Cut(version, ".")
	summary := name
	if major != "" {
		summary += " " + major
	}
	if os := ua.OS(); os != "" {
		summary += "/" + os
	}
	return summary
}
