package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {

	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, Verify("correct horse battery staple", hash))
	assert.False(t, Verify("Correct horse battery staple", hash))
	assert.False(t, Verify("", hash))
}

func TestHashIsSalted(t *testing.T) {

	hash1, err := Hash("same password")
	require.NoError(t, err)
	hash2, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, Verify("same password", hash1))
	assert.True(t, Verify("same password", hash2))
}

func TestVerifyLegacy(t *testing.T) {

	legacy, err := LegacyHash("old password")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(legacy, "$2"))

	assert.True(t, Verify("old password", legacy))
	assert.False(t, Verify("wrong password", legacy))
}

func TestVerifyMalformed(t *testing.T) {

	// any unverifiable stored value fails closed
	for _, stored := range []string{
		"",
		"no-colon-here",
		"deadbeef:",
		":deadbeef",
		"nothex:deadbeef",
		"deadbeef:nothex",
		"$2x$garbage",
	} {
		assert.False(t, Verify("password", stored), "stored %q", stored)
	}
}

func TestNeedsRehash(t *testing.T) {

	current, err := Hash("password1")
	require.NoError(t, err)
	legacy, err := LegacyHash("password1")
	require.NoError(t, err)

	assert.False(t, NeedsRehash(current))
	assert.True(t, NeedsRehash(legacy))
}
