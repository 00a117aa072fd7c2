package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "mara", "gm", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "mara", claims.Username)
	require.Equal(t, "gm", claims.Role)
	require.Equal(t, "42", claims.Subject, "subject carries the credential id")
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken(42, "mara", "hero", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("definitely.not.a-token")
	require.Error(t, err)
}
