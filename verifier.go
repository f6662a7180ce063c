package identity

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Registration carries the fields a new account needs. Password is the
// plaintext secret; it is hashed before anything is stored.
type Registration struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

// LocalVerifier registers accounts and checks passwords against the Users
// store. Authenticate answers unknown emails and wrong passwords with the
// same ErrInvalidCredentials and roughly the same amount of work, so callers
// cannot probe which addresses exist.
type LocalVerifier struct {
	users  Users
	hasher *Hasher
	logger Logger

	dummyMu   sync.Mutex
	dummyHash string
}

var _ Verifier = (*LocalVerifier)(nil)

func NewLocalVerifier(users Users, hasher *Hasher, logger Logger) *LocalVerifier {
	if hasher == nil {
		hasher = NewHasher()
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &LocalVerifier{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

func (v *LocalVerifier) Register(ctx context.Context, reg Registration) (*User, error) {
	if reg.Email == "" || reg.Password == "" {
		return nil, goerrors.New("email and password are required", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := v.hasher.Hash(ctx, reg.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not hash password")
	}

	user := &User{
		Name:         reg.Name,
		Email:        normalizeEmail(reg.Email),
		Age:          reg.Age,
		PasswordHash: hash,
	}

	created, err := v.users.Create(ctx, user)
	if err != nil {
		if IsDuplicateEmail(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return created.Sanitized(), nil
}

func (v *LocalVerifier) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			// burn a comparison so unknown emails cost as much as wrong
			// passwords
			v.burnComparison(ctx, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		// federated account with no local password
		v.burnComparison(ctx, password)
		return nil, ErrInvalidCredentials
	}

	if err := v.hasher.Compare(ctx, password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMalformedDigest) {
			v.logger.Error("stored password digest is malformed", "user_id", user.ID)
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stored credential is unusable")
		}
		return nil, ErrInvalidCredentials
	}

	return user.Sanitized(), nil
}

func (v *LocalVerifier) burnComparison(ctx context.Context, password string) {
	hash := v.dummyDigest(ctx)
	if hash == "" {
		return
	}
	_ = v.hasher.Compare(ctx, password, hash)
}

// dummyDigest lazily hashes a fixed credential for burn comparisons. A failed
// attempt, a cancelled first caller included, is retried on the next call
// instead of latching.
func (v *LocalVerifier) dummyDigest(ctx context.Context) string {
	v.dummyMu.Lock()
	defer v.dummyMu.Unlock()

	if v.dummyHash == "" {
		hash, err := v.hasher.Hash(ctx, "identity.dummy.credential")
		if err != nil {
			return ""
		}
		v.dummyHash = hash
	}

	return v.dummyHash
}
