package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateAPIKey(t *testing.T) {
	raw, prefix, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, IsAPIKey(raw))
	assert.True(t, strings.HasPrefix(raw, prefix))
	assert.Len(t, prefix, len(APIKeyPrefix)+8)
	assert.Equal(t, HashToken(raw), hash)
	assert.NotContains(t, hash, raw)

	other, _, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestIsAPIKey(t *testing.T) {
	assert.False(t, IsAPIKey("eyJhbGciOiJIUzI1NiJ9.e30.sig"))
	assert.False(t, IsAPIKey("ck_short"))
	assert.True(t, IsAPIKey(APIKeyPrefix+strings.Repeat("a", 64)))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hashed, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, "correct horse"))
	assert.Error(t, h.Compare(hashed, "wrong horse"))
}

func TestBcryptHasher_CostOutOfRange(t *testing.T) {
	for _, cost := range []int{0, bcrypt.MaxCost + 1} {
		hashed, err := NewBcryptHasher(cost).Hash("correct horse")
		require.NoError(t, err)

		got, err := bcrypt.Cost([]byte(hashed))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, got)
	}
}
