package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifiers(t *testing.T) {
	t.Run("nil input yields an empty batch", func(t *testing.T) {
		assert.Empty(t, NormalizeIdentifiers(nil))
	})

	t.Run("case and padding variants collapse to one", func(t *testing.T) {
		got := NormalizeIdentifiers([]string{" ABCD ", "abcd", "Abcd", "ef01"})
		assert.Equal(t, []string{"abcd", "ef01"}, got)
	})

	t.Run("blanks are dropped", func(t *testing.T) {
		got := NormalizeIdentifiers([]string{"", "   ", "\t", "ab"})
		assert.Equal(t, []string{"ab"}, got)
	})
}
