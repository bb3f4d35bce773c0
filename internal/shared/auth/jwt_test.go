package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, now func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return issuer.WithClock(now)
}

func TestIssuePairRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)

	pair, err := issuer.IssuePair("user-1", "a@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	access, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "a@example.com", access.Email)
	assert.Equal(t, KindAccess, access.Kind)
	assert.NotEmpty(t, access.ID)

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refresh.UserID)
	assert.Empty(t, refresh.Email)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)
	pair, err := issuer.IssuePair("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = issuer.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	current := issued
	issuer := newTestIssuer(t, func() time.Time { return current })

	pair, err := issuer.IssuePair("user-1", "a@example.com")
	require.NoError(t, err)

	current = issued.Add(14 * time.Minute)
	_, err = issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	current = issued.Add(16 * time.Minute)
	_, err = issuer.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	current = issued.Add(8 * 24 * time.Hour)
	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbageAndForeignSecret(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)
	other, err := NewTokenIssuer("other-access", "other-refresh", time.Minute, time.Hour)
	require.NoError(t, err)

	pair, err := other.IssuePair("user-1", "")
	require.NoError(t, err)

	for _, token := range []string{"", "abc", "a.b.c", pair.AccessToken} {
		_, err := issuer.VerifyAccess(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestNewTokenIssuerRequiresDistinctSecrets(t *testing.T) {
	_, err := NewTokenIssuer("", "x", 0, 0)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewTokenIssuer("same", "same", 0, 0)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "s3cret!"))
}
