package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret_Unique(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestGenerateSalt_Unique(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestVerifySecret_RoundTrip(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	salt, err := GenerateSalt()
	require.NoError(t, err)

	hash, err := HashSecret(secret, salt)
	require.NoError(t, err)

	ok, err := VerifySecret(secret, salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySecret_WrongSecret(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	hash, err := HashSecret("correct-secret", salt)
	require.NoError(t, err)

	ok, err := VerifySecret("wrong-secret", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySecret_WrongSalt(t *testing.T) {
	hash, err := HashSecret("secret", "salt-one-0123456789abcdef0123456")
	require.NoError(t, err)

	ok, err := VerifySecret("secret", "salt-two-0123456789abcdef0123456", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSecret_Deterministic(t *testing.T) {
	h1, err := HashSecret("secret", "salt")
	require.NoError(t, err)
	h2, err := HashSecret("secret", "salt")
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestLast8(t *testing.T) {
	assert.Equal(t, "89abcdef", Last8("0123456789abcdef"))
	assert.Equal(t, "short", Last8("short"))
}
