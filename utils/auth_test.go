package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/threadbbs/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	expired, err := GenerateToken(7, "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)
}

func TestRevokeTokenInMemory(t *testing.T) {
	SetRedis(nil)
	assert.False(t, IsTokenRevoked("jti-1"))
	RevokeToken("jti-1", time.Now().Add(time.Hour))
	assert.True(t, IsTokenRevoked("jti-1"))

	RevokeToken("jti-2", time.Now().Add(-time.Second))
	assert.False(t, IsTokenRevoked("jti-2"), "already expired tokens are not tracked")
	assert.False(t, IsTokenRevoked(""))
}

func TestRevokeTokenInRedis(t *testing.T) {
	mr, _ := useMiniredis(t)
	RevokeToken("jti-r", time.Now().Add(time.Minute))
	assert.True(t, mr.Exists("jwt:revoked:jti-r"))
	assert.True(t, IsTokenRevoked("jti-r"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))

	_, err = HashPassword(string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestSanitize(t *testing.T) {
	clean := Sanitize(`<a href="https://example.com" onclick="evil()">x</a>`)
	assert.NotContains(t, clean, "onclick")
	assert.Contains(t, clean, `rel="nofollow"`)
	assert.Equal(t, "title", SanitizeText("<i>title</i>"))
}
