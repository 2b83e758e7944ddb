package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	t.Run("Produces six characters from the alphabet", func(t *testing.T) {
		for range 200 {
			// When: generating a code
			code, err := GenerateRoomCode()

			// Then: it has the right length and alphabet
			require.NoError(t, err)
			require.Len(t, code, RoomCodeLength)
			for _, r := range code {
				assert.True(t, strings.ContainsRune(RoomCodeAlphabet, r), "unexpected symbol %q", r)
			}
		}
	})

	t.Run("Uses more than a handful of symbols", func(t *testing.T) {
		seen := make(map[rune]struct{})
		for range 500 {
			code, err := GenerateRoomCode()
			require.NoError(t, err)
			for _, r := range code {
				seen[r] = struct{}{}
			}
		}

		assert.Greater(t, len(seen), 30)
	})
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "AB12CD", NormalizeRoomCode(" ab12cd\n"))
	assert.Equal(t, "AB12CD", NormalizeRoomCode("AB12CD"))
}

func TestGenerateIdentity(t *testing.T) {
	first := GenerateIdentity()
	second := GenerateIdentity()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
