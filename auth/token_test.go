package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager([]byte("test-secret"), "feedlab", time.Hour)

	token, err := tm.Generate("uid-1", "alice@example.com")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := tm.Validate(token)
	req.NoError(err)
	req.Equal("uid-1", claims.UserID)
	req.Equal("alice@example.com", claims.Email)
	req.Equal("feedlab", claims.Issuer)
}

func TestTokenManager_Expired(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager([]byte("test-secret"), "feedlab", -time.Minute)

	token, err := tm.Generate("uid-1", "alice@example.com")
	req.NoError(err)

	_, err = tm.Validate(token)
	req.Error(err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager([]byte("secret-a"), "feedlab", time.Hour)
	other := NewTokenManager([]byte("secret-b"), "feedlab", time.Hour)

	token, err := tm.Generate("uid-1", "alice@example.com")
	req.NoError(err)

	_, err = other.Validate(token)
	req.Error(err)
}
