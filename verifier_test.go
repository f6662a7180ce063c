package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier(t *testing.T) (*identity.LocalVerifier, *identity.MemoryUsers) {
	t.Helper()
	users := identity.NewMemoryUsers()
	hasher := identity.NewHasher(identity.WithCost(bcrypt.MinCost))
	return identity.NewLocalVerifier(users, hasher, nil), users
}

func TestLocalVerifier_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an account and never exposes the hash", func(t *testing.T) {
		verifier, users := newTestVerifier(t)

		user, err := verifier.Register(ctx, identity.Registration{
			Name:     "Pep Ventura",
			Email:    "pep@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "pep@example.com", user.Email)
		assert.Empty(t, user.PasswordHash)

		// the stored record carries a digest, not the password
		stored, err := users.GetByEmail(ctx, "pep@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, stored.PasswordHash)
		assert.NotEqual(t, "secret-password", stored.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		verifier, _ := newTestVerifier(t)

		_, err := verifier.Register(ctx, identity.Registration{
			Name: "First", Email: "dup@example.com", Password: "secret-password",
		})
		require.NoError(t, err)

		_, err = verifier.Register(ctx, identity.Registration{
			Name: "Second", Email: "dup@example.com", Password: "another-password",
		})
		assert.True(t, identity.IsDuplicateEmail(err))
	})

	t.Run("rejects missing email or password", func(t *testing.T) {
		verifier, _ := newTestVerifier(t)

		_, err := verifier.Register(ctx, identity.Registration{Email: "a@example.com"})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, identity.TextCodeValidation, richErr.TextCode)

		_, err = verifier.Register(ctx, identity.Registration{Password: "secret-password"})
		assert.Error(t, err)
	})
}

func TestLocalVerifier_Authenticate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *identity.LocalVerifier {
		verifier, _ := newTestVerifier(t)
		_, err := verifier.Register(ctx, identity.Registration{
			Name:     "Pep Ventura",
			Email:    "pep@example.com",
			Password: "secret-password",
		})
		require.NoError(t, err)
		return verifier
	}

	t.Run("valid credentials resolve the sanitized user", func(t *testing.T) {
		verifier := setup(t)

		user, err := verifier.Authenticate(ctx, "pep@example.com", "secret-password")
		require.NoError(t, err)
		assert.Equal(t, "pep@example.com", user.Email)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		verifier := setup(t)

		_, wrongPass := verifier.Authenticate(ctx, "pep@example.com", "wrong-password")
		_, unknownEmail := verifier.Authenticate(ctx, "nobody@example.com", "secret-password")

		assert.ErrorIs(t, wrongPass, identity.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, identity.ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), unknownEmail.Error())
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		verifier := setup(t)

		user, err := verifier.Authenticate(ctx, "PEP@Example.COM", "secret-password")
		require.NoError(t, err)
		assert.Equal(t, "pep@example.com", user.Email)
	})

	t.Run("account without a local password rejects password login", func(t *testing.T) {
		users := identity.NewMemoryUsers()
		_, err := users.Create(ctx, &identity.User{
			Name:  "Federated Only",
			Email: "fed@example.com",
		})
		require.NoError(t, err)

		verifier := identity.NewLocalVerifier(users, identity.NewHasher(identity.WithCost(bcrypt.MinCost)), nil)

		_, err = verifier.Authenticate(ctx, "fed@example.com", "anything")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("corrupted stored digest is not invalid credentials", func(t *testing.T) {
		users := identity.NewMemoryUsers()
		_, err := users.Create(ctx, &identity.User{
			Name:         "Broken",
			Email:        "broken@example.com",
			PasswordHash: "garbage",
		})
		require.NoError(t, err)

		verifier := identity.NewLocalVerifier(users, identity.NewHasher(identity.WithCost(bcrypt.MinCost)), nil)

		_, err = verifier.Authenticate(ctx, "broken@example.com", "anything")
		require.Error(t, err)
		assert.NotErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}
