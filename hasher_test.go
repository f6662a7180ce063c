package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	t.Run("rejects empty password", func(t *testing.T) {
		_, err := identity.HashPassword("")
		assert.ErrorIs(t, err, identity.ErrNoEmptyString)
	})
}

func TestHasher_HashAndCompare(t *testing.T) {
	hasher := identity.NewHasher(identity.WithCost(bcrypt.MinCost))
	ctx := context.Background()

	t.Run("hash verifies against the original password", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "correct horse battery staple")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "correct horse battery staple", hash)

		assert.NoError(t, hasher.Compare(ctx, "correct horse battery staple", hash))
	})

	t.Run("same password hashes to different digests", func(t *testing.T) {
		first, err := hasher.Hash(ctx, "secret-password")
		require.NoError(t, err)
		second, err := hasher.Hash(ctx, "secret-password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.NoError(t, hasher.Compare(ctx, "secret-password", first))
		assert.NoError(t, hasher.Compare(ctx, "secret-password", second))
	})

	t.Run("wrong password fails verification", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "secret-password")
		require.NoError(t, err)

		err = hasher.Compare(ctx, "not-the-password", hash)
		assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash(ctx, "")
		assert.ErrorIs(t, err, identity.ErrNoEmptyString)
	})

	t.Run("malformed digest is not a mismatch", func(t *testing.T) {
		err := hasher.Compare(ctx, "whatever", "not-a-bcrypt-digest")
		assert.ErrorIs(t, err, identity.ErrMalformedDigest)
		assert.NotErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
	})

	t.Run("rejects a canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := hasher.Hash(canceled, "waiter")
		assert.Error(t, err)
	})
}

func TestAsPasswordAuthenticator(t *testing.T) {
	auth := identity.AsPasswordAuthenticator(
		identity.NewHasher(identity.WithCost(bcrypt.MinCost)),
	)

	hash, err := auth.HashPassword("secret-password")
	require.NoError(t, err)

	assert.NoError(t, auth.ComparePasswordAndHash("secret-password", hash))
	assert.ErrorIs(t,
		auth.ComparePasswordAndHash("wrong", hash),
		identity.ErrMismatchedHashAndPassword,
	)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := identity.HashPassword("secret-password")
	require.NoError(t, err)

	assert.NoError(t, identity.ComparePasswordAndHash("secret-password", hash))
	assert.ErrorIs(t,
		identity.ComparePasswordAndHash("wrong", hash),
		identity.ErrMismatchedHashAndPassword,
	)
}
