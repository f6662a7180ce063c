package identity

import (
	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is an environment backed Config. Only the signing key is
// required; everything else carries a usable default.
type EnvConfig struct {
	Addr            string   `env:"IDENTITY_ADDR" envDefault:":8080"`
	SigningKey      string   `env:"IDENTITY_SIGNING_KEY"`
	SigningMethod   string   `env:"IDENTITY_SIGNING_METHOD" envDefault:"HS256"`
	TokenExpiration int      `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"24"`
	Issuer          string   `env:"IDENTITY_ISSUER" envDefault:"identity"`
	Audience        []string `env:"IDENTITY_AUDIENCE" envDefault:"identity"`
	ContextKey      string   `env:"IDENTITY_CONTEXT_KEY" envDefault:"user"`
	CookieName      string   `env:"IDENTITY_COOKIE_NAME" envDefault:"token"`
	TokenLookup     string   `env:"IDENTITY_TOKEN_LOOKUP" envDefault:"cookie:token,header:Authorization"`
	AuthScheme      string   `env:"IDENTITY_AUTH_SCHEME" envDefault:"Bearer"`

	GoogleClientID     string `env:"IDENTITY_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"IDENTITY_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"IDENTITY_GOOGLE_CALLBACK_URL"`

	StateEncryptionKey string `env:"IDENTITY_STATE_ENCRYPTION_KEY"`
	StateSigningKey    string `env:"IDENTITY_STATE_SIGNING_KEY"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("IDENTITY_SIGNING_KEY is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation)
	}
	if c.TokenExpiration <= 0 {
		c.TokenExpiration = 24
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *EnvConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *EnvConfig) GetIssuer() string        { return c.Issuer }
func (c *EnvConfig) GetAudience() []string    { return c.Audience }
func (c *EnvConfig) GetContextKey() string    { return c.ContextKey }
func (c *EnvConfig) GetCookieName() string    { return c.CookieName }
func (c *EnvConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string    { return c.AuthScheme }
