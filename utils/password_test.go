package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("lozinka123")
	require.NoError(t, err)
	require.NotEqual(t, "lozinka123", hash)

	require.True(t, CheckPassword(hash, "lozinka123"))
	require.False(t, CheckPassword(hash, "kriva"))
	require.False(t, CheckPassword("", "lozinka123"))
}
