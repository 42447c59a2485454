package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionProducesMatchingStateAndVerifier(t *testing.T) {
	session, err := NewSession()
	require.NoError(t, err)
	assert.Equal(t, session.State, session.CodeVerifier)
	assert.Len(t, session.CodeVerifier, 43) // base64.RawURLEncoding of 32 bytes
}

func TestNewSessionIsRandomEachTime(t *testing.T) {
	a, err := NewSession()
	require.NoError(t, err)
	b, err := NewSession()
	require.NoError(t, err)
	assert.NotEqual(t, a.CodeVerifier, b.CodeVerifier)
}

func TestCodeChallengeIsDeterministic(t *testing.T) {
	assert.Equal(t, codeChallenge("abc"), codeChallenge("abc"))
	assert.NotEqual(t, codeChallenge("abc"), codeChallenge("abd"))
}
