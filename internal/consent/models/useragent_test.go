package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeUserAgent(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", SummarizeUserAgent("  "))
	})

	t.Run("browser drops minor version and device detail", func(t *testing.T) {
		raw := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
		got := SummarizeUserAgent(raw)
		assert.True(t, strings.HasPrefix(got, "Chrome 120/Windows"), got)
		assert.NotContains(t, got, "6099")
	})

	t.Run("bot", func(t *testing.T) {
		assert.Equal(t, "bot", SummarizeUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)"))
	})
}
