// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flow

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const (
	testKeyID = "test-key"

	// TestRefreshToken is the refresh token a TestProvider issues and accepts.
	TestRefreshToken = "test-refresh-token"
)

// TestProvider is a minimal OIDC provider for tests. Its authorize endpoint
// redirects straight back to the redirect_uri with the expected code, or with
// an error when one is set.
type TestProvider struct {
	t      *testing.T
	srv    *httptest.Server
	key    *rsa.PrivateKey
	client struct{ id, secret string }

	mu            sync.Mutex
	expectedCode  string
	nonce         string
	nonceOverride string
	authError     string
	omitIDToken   bool
	grants        map[string]int
}

// StartTestProvider starts a TestProvider that is stopped when the test ends.
func StartTestProvider(t *testing.T, clientID, clientSecret string) *TestProvider {
	t.Helper()
	require := require.New(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)

	p := &TestProvider{t: t, key: key, expectedCode: "valid-code", grants: map[string]int{}}
	p.client.id, p.client.secret = clientID, clientSecret

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("/authorize", p.handleAuthorize)
	mux.HandleFunc("/token", p.handleToken)
	mux.HandleFunc("/keys", p.handleKeys)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// Addr is the provider's issuer.
func (p *TestProvider) Addr() string { return p.srv.URL }

func (p *TestProvider) AuthURL() string  { return p.srv.URL + "/authorize" }
func (p *TestProvider) TokenURL() string { return p.srv.URL + "/token" }

// SetExpectedAuthCode sets the code the authorize endpoint issues and the
// token endpoint accepts.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedCode = code
}

// SetAuthError makes the authorize endpoint redirect with an error.
func (p *TestProvider) SetAuthError(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authError = e
}

// SetNonceOverride signs id_tokens with nonce instead of the requested one.
func (p *TestProvider) SetNonceOverride(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceOverride = nonce
}

// SetOmitIDToken leaves the id_token out of token responses.
func (p *TestProvider) SetOmitIDToken(omit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = omit
}

// GrantCount is the number of successful token requests of grantType.
func (p *TestProvider) GrantCount(grantType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grants[grantType]
}

func (p *TestProvider) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                                p.srv.URL,
		"authorization_endpoint":                p.AuthURL(),
		"token_endpoint":                        p.TokenURL(),
		"jwks_uri":                              p.srv.URL + "/keys",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *TestProvider) handleKeys(w http.ResponseWriter, _ *http.Request) {
	p.writeJSON(w, http.StatusOK, jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &p.key.PublicKey,
			KeyID:     testKeyID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		}},
	})
}

func (p *TestProvider) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("client_id") != p.client.id {
		http.Error(w, "invalid client", http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	p.nonce = q.Get("nonce")
	code, authErr := p.expectedCode, p.authError
	p.mu.Unlock()

	resp := url.Values{}
	resp.Set("state", q.Get("state"))
	if authErr != "" {
		resp.Set("error", authErr)
		resp.Set("error_description", "the user denied the request")
	} else {
		resp.Set("code", code)
	}
	redirect.RawQuery = resp.Encode()
	http.Redirect(w, req, redirect.String(), http.StatusFound)
}

func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	id, secret, ok := req.BasicAuth()
	if !ok {
		id, secret = req.PostForm.Get("client_id"), req.PostForm.Get("client_secret")
	}
	if id != p.client.id || secret != p.client.secret {
		p.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	p.mu.Lock()
	code, nonce, omit := p.expectedCode, p.nonce, p.omitIDToken
	if p.nonceOverride != "" {
		nonce = p.nonceOverride
	}
	p.mu.Unlock()

	grantType := req.PostForm.Get("grant_type")
	accessToken := "test-access-token"
	switch {
	case grantType == "authorization_code" && req.PostForm.Get("code") == code:
	case grantType == "refresh_token" && req.PostForm.Get("refresh_token") == TestRefreshToken:
		accessToken = "test-refreshed-access-token"
		nonce = ""
	default:
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	resp := map[string]interface{}{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"refresh_token": TestRefreshToken,
		"expires_in":    3600,
	}
	if !omit {
		idt, err := p.signIDToken(nonce)
		if err != nil {
			p.t.Logf("unable to sign id_token: %s", err)
			p.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		resp["id_token"] = idt
	}
	p.mu.Lock()
	p.grants[grantType]++
	p.mu.Unlock()
	p.writeJSON(w, http.StatusOK, resp)
}

func (p *TestProvider) signIDToken(nonce string) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: p.key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", testKeyID),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.Claims{
		Issuer:    p.srv.URL,
		Subject:   "alice@example.com",
		Audience:  []string{p.client.id},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	privateClaims := map[string]interface{}{
		"email": "alice@example.com",
	}
	if nonce != "" {
		privateClaims["nonce"] = nonce
	}
	return jwt.Signed(sig).Claims(claims).Claims(privateClaims).CompactSerialize()
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
