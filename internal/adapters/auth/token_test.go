package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventregistration/internal/domain"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("test-secret", time.Hour)

	ident := domain.Identity{
		UserID:   "u1",
		Email:    "ada@example.com",
		Member:   true,
		GroupIDs: []string{"g1", "g2"},
	}
	token, err := v.Issue(ident)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.True(t, got.Authenticated)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, "ada@example.com", got.Email)
	require.True(t, got.Member)
	require.False(t, got.Superuser)
	require.Equal(t, []string{"g1", "g2"}, got.GroupIDs)
}

func TestJWTVerifier_RejectsWrongSecret(t *testing.T) {
	v := NewJWTVerifier("test-secret", time.Hour)
	token, err := v.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	other := NewJWTVerifier("other-secret", time.Hour)
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestJWTVerifier_RejectsExpired(t *testing.T) {
	v := NewJWTVerifier("test-secret", -time.Minute)
	token, err := v.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
}
