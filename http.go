package identity

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator moves session tokens across the HTTP boundary. The
// token travels in an HttpOnly cookie; handlers never see or echo the raw
// value back in a body.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute guards a handler with token validation sourced from the
// configured lookup chain.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
	})
}

// Login verifies credentials and, only on success, sets the session cookie.
func (a *RouteAuthenticator) Login(ctx router.Context, email, password string) (*User, error) {
	token, user, err := a.auth.Login(ctx.Context(), email, password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return user, nil
}

// Register creates the account and establishes a session in the same round
// trip.
func (a *RouteAuthenticator) Register(ctx router.Context, reg Registration) (*User, error) {
	token, user, err := a.auth.Register(ctx.Context(), reg)
	if err != nil {
		return nil, err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return user, nil
}

// Logout expires the session cookie. It never fails: a logout with no
// session is still a logout.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetCookieName())
}

// EstablishSession sets the cookie for an externally issued token, e.g.
// after a federated callback.
func (a *RouteAuthenticator) EstablishSession(ctx router.Context, token string) {
	a.setCookieToken(ctx, token, a.cookieDuration)
}

// MakeClientRouteAuthErrorHandler builds the failure handler for protected
// routes. Every token failure collapses into the same unauthorized answer so
// responses leak nothing about why validation failed.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", err)
			return ctx.Next()
		}
		return a.ErrorHandler(ctx, ErrTokenInvalid)
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "An unexpected authentication error").
			WithCode(goerrors.CodeUnauthorized)
	}

	status := router.StatusUnauthorized
	if richErr.Code > 0 {
		status = richErr.Code
	}

	return c.JSON(status, map[string]any{
		"error": richErr.Message,
	})
}
