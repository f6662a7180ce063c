package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	t.Run("round trips the user", func(t *testing.T) {
		user := &identity.User{ID: uuid.New(), Email: "pep@example.com"}

		ctx := identity.WithContext(context.Background(), user)

		got, ok := identity.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, user, got)
	})

	t.Run("empty context has no user", func(t *testing.T) {
		got, ok := identity.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestClaimsContext(t *testing.T) {
	t.Run("round trips validated claims", func(t *testing.T) {
		claims := &identity.JWTClaims{UID: uuid.NewString()}

		ctx := identity.WithClaimsContext(context.Background(), claims)

		got, ok := identity.GetClaims(ctx)
		require.True(t, ok)
		assert.Equal(t, claims.UserID(), got.UserID())
	})

	t.Run("empty context has no claims", func(t *testing.T) {
		got, ok := identity.GetClaims(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}
