package identity_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) (*identity.Auther, *identity.MemoryUsers) {
	t.Helper()

	users := identity.NewMemoryUsers()
	hasher := identity.NewHasher(identity.WithCost(bcrypt.MinCost))
	verifier := identity.NewLocalVerifier(users, hasher, nil)
	tokens := identity.NewTokenService([]byte("test-signing-key"), 24, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)

	return identity.NewAuthenticator(verifier, users, tokens, nil), users
}

func TestAuther_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("register issues a token for the new account", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t)

		token, user, err := auther.Register(ctx, identity.Registration{
			Name:     "Pep Ventura",
			Email:    "pep@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Empty(t, user.PasswordHash)

		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), session.GetUserID())
	})

	t.Run("login issues a token bound to the user", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t)

		_, registered, err := auther.Register(ctx, identity.Registration{
			Name: "Pep", Email: "pep@example.com", Password: "secret-password",
		})
		require.NoError(t, err)

		token, user, err := auther.Login(ctx, "pep@example.com", "secret-password")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("failed login issues nothing", func(t *testing.T) {
		auther, _ := newTestAuthenticator(t)

		token, user, err := auther.Login(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		assert.Empty(t, token)
		assert.Nil(t, user)
	})
}

func TestAuther_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuthenticator(t)

	token, registered, err := auther.Register(ctx, identity.Registration{
		Name: "Pep", Email: "pep@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	t.Run("session resolves back to the user", func(t *testing.T) {
		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)

		user, err := auther.UserFromSession(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("invalid token has no session", func(t *testing.T) {
		_, err := auther.SessionFromToken("garbage")
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("valid token whose subject vanished fails resolution", func(t *testing.T) {
		// new store, same signing key: the token no longer maps to a user
		fresh := identity.NewMemoryUsers()
		verifier := identity.NewLocalVerifier(fresh, identity.NewHasher(identity.WithCost(bcrypt.MinCost)), nil)
		tokens := identity.NewTokenService([]byte("test-signing-key"), 24, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)
		orphaned := identity.NewAuthenticator(verifier, fresh, tokens, nil)

		session, err := orphaned.SessionFromToken(token)
		require.NoError(t, err)

		_, err = orphaned.UserFromSession(ctx, session)
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}
