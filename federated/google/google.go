// Package google implements federated.Provider against Google's OAuth2
// endpoints with plain net/http. No oauth2 client library: the token exchange
// is one form post and the userinfo call one GET, and owning both keeps the
// PKCE and error mapping explicit.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-identity/federated"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds Google OAuth configuration. The endpoint URLs are overridable
// for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements federated.Provider for Google.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements federated.Provider.
func (p *Provider) Name() string {
	return "google"
}

// AuthCodeURL implements federated.Provider.
func (p *Provider) AuthCodeURL(state string, opts ...federated.AuthCodeOption) string {
	cfg := federated.ApplyAuthCodeOptions(p.config.Scopes, opts...)
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}

	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
		// offline so Google returns a refresh token on first consent
		"access_type": {"offline"},
	}

	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	if cfg.Prompt != "" {
		params.Set("prompt", cfg.Prompt)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements federated.Provider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...federated.ExchangeOption) (*federated.Token, error) {
	cfg := federated.ApplyExchangeOptions(opts...)

	form := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}
	if cfg.CodeVerifier != "" {
		form.Set("code_verifier", cfg.CodeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var answer tokenResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, p.fail("exchange", status, "invalid_response", "failed to decode token response", err, nil)
	}

	if status != http.StatusOK || answer.Error != "" {
		code, desc, raw := answer.Error, answer.ErrorDesc, answer.errorMetadata()
		if code == "" && desc == "" {
			code, desc, raw = parseErrorBody(body)
		}
		return nil, p.fail("exchange", status, code, desc, nil, raw)
	}
	if answer.AccessToken == "" {
		return nil, p.fail("exchange", status, "missing_access_token", "missing access token", nil, nil)
	}

	return answer.token(), nil
}

// UserInfo implements federated.Provider.
func (p *Provider) UserInfo(ctx context.Context, token *federated.Token) (*federated.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	body, status, err := p.do(req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		code, description, raw := parseErrorBody(body)
		return nil, p.fail("user_info", status, code, description, nil, raw)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, p.fail("user_info", status, "invalid_response", "failed to decode userinfo response", err, nil)
	}

	return info.profile(), nil
}

// do runs the request and drains the body so the caller decodes exactly once.
func (p *Provider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

func (p *Provider) fail(operation string, status int, code, description string, err error, raw map[string]any) *federated.ProviderError {
	return &federated.ProviderError{
		Provider:    p.Name(),
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func (r tokenResponse) token() *federated.Token {
	var expiresAt time.Time
	if r.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	return &federated.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       strings.Fields(r.Scope),
		Raw: map[string]any{
			"id_token": r.IDToken,
		},
	}
}

func (r tokenResponse) errorMetadata() map[string]any {
	meta := map[string]any{}
	if r.Error != "" {
		meta["error"] = r.Error
	}
	if r.ErrorDesc != "" {
		meta["error_description"] = r.ErrorDesc
	}
	if r.Scope != "" {
		meta["scope"] = r.Scope
	}
	return meta
}

// parseErrorBody normalizes the two error shapes Google answers with: the
// OAuth pair {error, error_description} and the REST envelope
// {error: {code, message, status}}. Anything else rides as plain text.
func parseErrorBody(body []byte) (string, string, map[string]any) {
	var oauthErr struct {
		Error string `json:"error"`
		Desc  string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil && (oauthErr.Error != "" || oauthErr.Desc != "") {
		return oauthErr.Error, oauthErr.Desc, map[string]any{
			"error":             oauthErr.Error,
			"error_description": oauthErr.Desc,
		}
	}

	var apiErr struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Error.Message != "" || apiErr.Error.Status != "") {
		code := apiErr.Error.Status
		if code == "" && apiErr.Error.Code != 0 {
			code = fmt.Sprintf("%d", apiErr.Error.Code)
		}
		return code, apiErr.Error.Message, map[string]any{
			"status":  apiErr.Error.Status,
			"message": apiErr.Error.Message,
			"code":    apiErr.Error.Code,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
	}

	return "", msg, nil
}
