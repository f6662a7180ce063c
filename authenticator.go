package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther ties credential verification to token issuance. Login and Register
// both end with a signed token so the HTTP layer can establish a session in
// one round trip.
type Auther struct {
	verifier Verifier
	users    Users
	tokens   TokenService
	logger   Logger
}

var _ Authenticator = (*Auther)(nil)

func NewAuthenticator(verifier Verifier, users Users, tokens TokenService, logger Logger) *Auther {
	if logger == nil {
		logger = defLogger{}
	}
	return &Auther{
		verifier: verifier,
		users:    users,
		tokens:   tokens,
		logger:   logger,
	}
}

func (a *Auther) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := a.verifier.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := a.tokens.Issue(user.ID.String())
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue session token")
	}

	return token, user, nil
}

func (a *Auther) Register(ctx context.Context, reg Registration) (string, *User, error) {
	user, err := a.verifier.Register(ctx, reg)
	if err != nil {
		return "", nil, err
	}

	token, err := a.tokens.Issue(user.ID.String())
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue session token")
	}

	return token, user, nil
}

func (a *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return sessionFromAuthClaims(claims)
}

func (a *Auther) UserFromSession(ctx context.Context, session Session) (*User, error) {
	id, err := session.GetUserUUID()
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}
