package identity

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		// Anything else means the stored digest itself is unusable.
		return ErrMalformedDigest
	}
	return nil
}

// Hasher bounds concurrent bcrypt work so CPU heavy hashing cannot starve
// request handling. Hash blocks while the pool is saturated and honors
// context cancellation during the wait.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

type HasherOption func(*Hasher)

// NewHasher returns a Hasher with the default cost and one hashing slot per CPU.
func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{
		cost: passwordHashCost(),
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// WithCost overrides the bcrypt work factor.
func WithCost(cost int) HasherOption {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithConcurrency overrides the number of concurrent hashing slots.
func WithConcurrency(n int64) HasherOption {
	return func(h *Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
	}
}

// Hash generates a password hash, waiting for a hashing slot if needed.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(out), err
}

// Compare validates the cleartext password against the stored digest.
// Comparison cost is bounded the same way hashing is.
func (h *Hasher) Compare(ctx context.Context, password, hash string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	return ComparePasswordAndHash(password, hash)
}

var _ PasswordAuthenticator = hasherAdapter{}

type hasherAdapter struct {
	hasher *Hasher
}

// AsPasswordAuthenticator exposes a Hasher through the context-free
// PasswordAuthenticator contract.
func AsPasswordAuthenticator(h *Hasher) PasswordAuthenticator {
	return hasherAdapter{hasher: h}
}

func (a hasherAdapter) HashPassword(password string) (string, error) {
	return a.hasher.Hash(context.Background(), password)
}

func (a hasherAdapter) ComparePasswordAndHash(password, hash string) error {
	return a.hasher.Compare(context.Background(), password, hash)
}
