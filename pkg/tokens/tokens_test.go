package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return &Issuer{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestIssuer_Issue_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	userID := uuid.NewString()
	now := time.Now().UTC()

	pair, err := iss.Issue("premium", "ana@example.com", userID, now)
	require.NoError(t, err)

	access, err := AccessClaimsFromToken(pair.AccessToken, iss.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, "premium", access.Role)
	assert.Equal(t, "ana@example.com", access.Email)
	assert.Equal(t, userID, access.Subject)
	assert.WithinDuration(t, now.Add(15*time.Minute), access.ExpiresAt.Time, time.Second)

	refresh, err := RefreshClaimsFromToken(pair.RefreshToken, iss.RefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, refresh.Subject)
	assert.Equal(t, pair.JTI, refresh.ID)
	assert.WithinDuration(t, pair.RefreshExp, refresh.ExpiresAt.Time, time.Second)
}

func TestAccessClaimsFromToken_Failures(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()

	expired, err := iss.CreateAccessToken("user", "", uuid.NewString(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(expired, iss.AccessSecret)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	valid, err := iss.CreateAccessToken("user", "", uuid.NewString(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(valid, []byte("wrong"))
	require.Error(t, err)

	_, err = AccessClaimsFromToken("not-a-jwt", iss.AccessSecret)
	require.Error(t, err)
}

func TestCookies(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	c := CreateCookie(AccessCookie, "v", "/", exp, true)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "v", c.Value)

	d := DeleteCookie(RefreshCookie, "/", false)
	assert.Equal(t, -1, d.MaxAge)
	assert.Empty(t, d.Value)

	cookies := PairCookies(&Pair{AccessToken: "a", RefreshToken: "r", AccessExp: exp, RefreshExp: exp}, false)
	require.Len(t, cookies, 2)
	assert.Equal(t, AccessCookie, cookies[0].Name)
	assert.Equal(t, RefreshCookie, cookies[1].Name)
}
