package subjecthash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxguard/pkg/domain"
)

func TestHasher(t *testing.T) {
	key := []byte(strings.Repeat("k", 32))

	t.Run("rejects short keys", func(t *testing.T) {
		_, err := New([]byte("short"))
		require.ErrorIs(t, err, ErrKeyTooShort)
	})

	t.Run("stable and normalized", func(t *testing.T) {
		h, err := New(key)
		require.NoError(t, err)
		a := h.Hash("Anna@Example.se ")
		b := h.Hash("anna@example.se")
		assert.Equal(t, a, b)

		parsed, err := domain.ParseSubjectHash(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	})

	t.Run("different keys give different hashes", func(t *testing.T) {
		h1, err := New(key)
		require.NoError(t, err)
		h2, err := New([]byte(strings.Repeat("q", 32)))
		require.NoError(t, err)
		assert.NotEqual(t, h1.Hash("070-1234567"), h2.Hash("070-1234567"))
	})
}
