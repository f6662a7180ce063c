package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-identity/federated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_AuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://app.example/auth/federated/google/callback",
	})

	raw := provider.AuthCodeURL("state-token", federated.WithPKCE("challenge-abc", "S256"))

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://app.example/auth/federated/google/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "openid email profile", query.Get("scope"))
	assert.Equal(t, "challenge-abc", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
}

func TestProvider_Exchange(t *testing.T) {
	t.Run("exchanges the code for a token", func(t *testing.T) {
		var form url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600,"scope":"openid email","id_token":"id-1"}`))
		}))
		defer server.Close()

		provider := New(Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			CallbackURL:  "https://app.example/callback",
			TokenURL:     server.URL,
		})

		token, err := provider.Exchange(context.Background(), "auth-code", federated.WithCodeVerifier("verifier-1"))
		require.NoError(t, err)

		assert.Equal(t, "access-1", token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.Equal(t, []string{"openid", "email"}, token.Scopes)
		assert.Equal(t, "id-1", token.Raw["id_token"])
		assert.False(t, token.ExpiresAt.IsZero())

		assert.Equal(t, "auth-code", form.Get("code"))
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "verifier-1", form.Get("code_verifier"))
	})

	t.Run("denial surfaces the provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"access_denied","error_description":"user denied access"}`))
		}))
		defer server.Close()

		provider := New(Config{TokenURL: server.URL})

		_, err := provider.Exchange(context.Background(), "auth-code")
		require.Error(t, err)

		var perr *federated.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "access_denied", perr.Code)
		assert.Equal(t, "exchange", perr.Operation)
	})

	t.Run("missing access token is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token_type":"Bearer"}`))
		}))
		defer server.Close()

		provider := New(Config{TokenURL: server.URL})

		_, err := provider.Exchange(context.Background(), "auth-code")
		assert.Error(t, err)
	})
}

func TestProvider_UserInfo(t *testing.T) {
	t.Run("maps the profile", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"sub":"sub-1","email":"person@example.com","email_verified":true,"name":"Person","given_name":"Per","family_name":"Son","picture":"https://example.com/p.png"}`))
		}))
		defer server.Close()

		provider := New(Config{UserInfoURL: server.URL})

		profile, err := provider.UserInfo(context.Background(), &federated.Token{AccessToken: "access-1"})
		require.NoError(t, err)

		assert.Equal(t, "Bearer access-1", gotAuth)
		assert.Equal(t, "sub-1", profile.ProviderUserID)
		assert.Equal(t, "google", profile.Provider)
		assert.Equal(t, "person@example.com", profile.Email)
		assert.True(t, profile.EmailVerified)
		assert.Equal(t, "Person", profile.Name)
	})

	t.Run("non-200 surfaces the provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_token","error_description":"expired"}`))
		}))
		defer server.Close()

		provider := New(Config{UserInfoURL: server.URL})

		_, err := provider.UserInfo(context.Background(), &federated.Token{AccessToken: "stale"})

		var perr *federated.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "user_info", perr.Operation)
		assert.Equal(t, http.StatusUnauthorized, perr.Status)
	})
}
