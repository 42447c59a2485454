package oauthstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsErrNoToken(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "token.json"))
	_, err := s.Load()
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "token.json"))
	rec := &TokenRecord{
		AccessToken:  "sk-ant-oat01-abc",
		RefreshToken: "refresh-abc",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Save(rec))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, rec.AccessToken, loaded.AccessToken)
	assert.Equal(t, rec.RefreshToken, loaded.RefreshToken)
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	rec := TokenRecord{ExpiresAt: now.Add(4 * time.Minute)}
	assert.True(t, rec.IsExpired(now, 5*time.Minute), "within the refresh skew window should count as expired")

	rec = TokenRecord{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, rec.IsExpired(now, 5*time.Minute))

	rec = TokenRecord{}
	assert.False(t, rec.IsExpired(now, 5*time.Minute), "zero expiry means long-lived, never expires")
}

func TestClearRemovesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	s := New(path)
	require.NoError(t, s.Save(&TokenRecord{AccessToken: "x"}))
	require.NoError(t, s.Clear())

	_, err := s.Load()
	assert.True(t, errors.Is(err, ErrNoToken))
}
