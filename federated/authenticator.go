package federated

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Authenticator orchestrates federated login flows. Completing a flow for
// the same provider subject always resolves the same local account: the
// first callback creates it, every later one finds it again.
type Authenticator struct {
	providers    map[string]Provider
	stateManager StateManager
	users        identity.Users
	tokens       identity.TokenService
	logger       identity.Logger
	config       AuthConfig
}

// AuthConfig configures the federated authenticator.
type AuthConfig struct {
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	RequireEmailVerified bool
}

// AuthOption configures the federated authenticator.
type AuthOption func(*Authenticator)

// NewAuthenticator creates a new federated authenticator.
func NewAuthenticator(
	users identity.Users,
	tokens identity.TokenService,
	config AuthConfig,
	opts ...AuthOption,
) *Authenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	fa := &Authenticator{
		providers: make(map[string]Provider),
		users:     users,
		tokens:    tokens,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(fa)
		}
	}

	if fa.stateManager == nil {
		fa.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return fa
}

// WithProvider registers an identity provider.
func WithProvider(provider Provider) AuthOption {
	return func(fa *Authenticator) {
		if provider == nil {
			return
		}
		fa.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) AuthOption {
	return func(fa *Authenticator) {
		fa.stateManager = sm
	}
}

// WithLogger sets the logger.
func WithLogger(logger identity.Logger) AuthOption {
	return func(fa *Authenticator) {
		fa.logger = logger
	}
}

// BeginAuth starts the OAuth flow for a provider.
func (fa *Authenticator) BeginAuth(
	ctx context.Context,
	providerName string,
	opts ...BeginAuthOption,
) (*AuthRedirect, error) {
	provider, ok := fa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if fa.stateManager == nil {
		return nil, ErrInvalidState
	}

	cfg := &beginAuthConfig{
		redirectURL: fa.config.DefaultRedirectURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  cfg.redirectURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(fa.config.StateTTL).Unix(),
	}

	stateToken, err := fa.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after callback.
func (fa *Authenticator) CompleteAuth(
	ctx context.Context,
	providerName string,
	code string,
	stateToken string,
) (*AuthResult, error) {
	if fa.stateManager == nil {
		return nil, ErrInvalidState
	}

	state, err := fa.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	if state.Expired() {
		return nil, ErrStateExpired
	}

	provider, ok := fa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	if fa.config.RequireEmailVerified && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user, isNew, err := fa.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	jwtToken, err := fa.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResult{
		User:        user,
		Token:       jwtToken,
		IsNewUser:   isNew,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}, nil
}

// resolveUser finds or creates the local account for a provider profile. The
// candidate ID is derived deterministically from the provider subject so a
// lost race between concurrent callbacks still converges on one account.
func (fa *Authenticator) resolveUser(ctx context.Context, profile *Profile) (*identity.User, bool, error) {
	if profile == nil {
		return nil, false, wrapProviderError(ErrUserInfoFailed, "", "resolve_user", errors.New("provider returned no profile"))
	}
	if profile.Email == "" {
		return nil, false, wrapProviderError(ErrUserInfoFailed, profile.Provider, "resolve_user", errors.New("profile has no email"))
	}

	candidate := &identity.User{
		Name:  profile.Name,
		Email: profile.Email,
	}

	if id, err := hashid.NewUUID(profile.Provider + ":" + profile.ProviderUserID); err == nil {
		candidate.ID = id
	}

	existing, err := fa.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return existing.Sanitized(), false, nil
	}

	created, err := fa.users.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, false, err
	}

	isNew := created.ID == candidate.ID
	return created.Sanitized(), isNew, nil
}

// ListProviders returns all registered providers.
func (fa *Authenticator) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range fa.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a successful authentication.
type AuthResult struct {
	User        *identity.User
	Token       string
	IsNewUser   bool
	Provider    string
	Profile     *Profile
	RedirectURL string
}

// BeginAuthOption configures the auth initiation.
type BeginAuthOption func(*beginAuthConfig)

type beginAuthConfig struct {
	redirectURL string
}

// WithRedirectURL sets the post-auth redirect URL.
func WithRedirectURL(url string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.redirectURL = url
	}
}
