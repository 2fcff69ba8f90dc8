// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package flow runs a complete local login: it starts the local server, sends
// the user to the authorization server, waits for the page to deliver the
// authorization code and exchanges it for tokens.
package flow

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"
	"github.com/localauth/localauth/httpclient"
	"github.com/localauth/localauth/server"
	"golang.org/x/oauth2"
)

// Result is the outcome of a successful Login.
type Result struct {
	Token *oauth2.Token

	// IDToken and IDTokenClaims are only set when the Config has an Issuer.
	IDToken       string
	IDTokenClaims map[string]interface{}
}

// Login runs the authorization code flow through the local server and
// returns the exchanged token. Supports the options: WithLogger, WithOpener,
// WithTimeout, WithHTTPClient, WithTokenFile.
func Login(ctx context.Context, c *Config, opt ...Option) (*Result, error) {
	const op = "flow.Login"
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getLoginOpts(opt...)
	logger := opts.withLogger.Named("flow")

	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = httpclient.NewClient(c.CAPem); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	ctx = httpclient.ClientContext(ctx, client)
	ctx, cancel := context.WithTimeout(ctx, opts.withTimeout)
	defer cancel()

	endpoint := oauth2.Endpoint{AuthURL: c.AuthURL, TokenURL: c.TokenURL}
	scopes := c.Scopes
	var v *verifiers
	if c.Issuer != "" {
		p, err := oidc.NewProvider(ctx, c.Issuer)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to discover issuer %q: %w", op, c.Issuer, err)
		}
		endpoint = p.Endpoint()
		v = &verifiers{
			login: p.Verifier(&oidc.Config{ClientID: c.ClientID}),
			// a stored id_token was verified when it was issued; only its
			// signature, issuer and audience are checked again
			stored: p.Verifier(&oidc.Config{ClientID: c.ClientID, SkipExpiryCheck: true}),
		}
		scopes = withOpenIDScope(scopes)
	}
	oc := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	if opts.withTokenFile != "" {
		res, err := reuseToken(ctx, oc, v, opts.withTokenFile)
		switch {
		case err != nil:
			logger.Warn("unable to reuse stored token, logging in", "file", opts.withTokenFile, "error", err)
		case res != nil:
			logger.Debug("reusing stored token", "file", opts.withTokenFile)
			saveResult(logger, opts.withTokenFile, res)
			return res, nil
		}
	}

	state, err := newID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	nonce, err := newID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate nonce: %w", op, err)
	}

	srv, err := server.New(
		server.WithAddr(c.Addr),
		server.WithExpectedState(state),
		server.WithStaticDir(c.StaticDir),
		server.WithLogger(opts.withLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	srv.Start()
	defer func() {
		// the page normally stops the server; this covers failures and timeouts
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Debug("unable to shut down local server", "error", err)
		}
	}()

	oc.RedirectURL = srv.RedirectURL()
	var authOpts []oauth2.AuthCodeOption
	if v != nil {
		authOpts = append(authOpts, oidc.Nonce(nonce))
	}
	authURL := oc.AuthCodeURL(state, authOpts...)

	logger.Info("waiting for login", "redirect_url", srv.RedirectURL())
	if err := opts.withOpener(authURL); err != nil {
		logger.Warn("unable to open browser, visit the URL manually", "url", authURL, "error", err)
	}

	params, err := srv.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if params.Value("state") != state {
		return nil, fmt.Errorf("%s: %w", op, ErrResponseStateInvalid)
	}

	tk, err := oc.Exchange(ctx, params.Value("code"))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrCodeExchangeFailed)
	}
	res := &Result{Token: tk}
	if v != nil {
		raw, ok := tk.Extra("id_token").(string)
		if !ok || raw == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
		}
		if res.IDTokenClaims, err = verifyIDToken(ctx, v.login, raw, nonce); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res.IDToken = raw
	}
	logger.Debug("login complete")
	if opts.withTokenFile != "" {
		saveResult(logger, opts.withTokenFile, res)
	}
	return res, nil
}

type verifiers struct {
	login  *oidc.IDTokenVerifier
	stored *oidc.IDTokenVerifier
}

// reuseToken returns the token stored in path while it is valid, or a token
// refreshed from it once it has expired. It returns a nil Result when the
// browser login is needed.
func reuseToken(ctx context.Context, oc *oauth2.Config, v *verifiers, path string) (*Result, error) {
	const op = "flow.reuseToken"
	st, err := loadTokenFile(path)
	if err != nil || st == nil {
		return nil, err
	}

	if !st.Token.Valid() {
		if st.Token.RefreshToken == "" {
			return nil, nil
		}
		// oc.TokenSource is a ReuseTokenSource, so Token refreshes the
		// expired token through oc's token endpoint
		tk, err := oc.TokenSource(ctx, st.Token).Token()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to refresh token: %w", op, err)
		}
		res := &Result{Token: tk, IDToken: st.IDToken}
		if raw, ok := tk.Extra("id_token").(string); ok && raw != "" && v != nil {
			if res.IDTokenClaims, err = verifyIDToken(ctx, v.login, raw, ""); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			res.IDToken = raw
			return res, nil
		}
		st.Token = tk
	}

	res := &Result{Token: st.Token}
	if v != nil && st.IDToken != "" {
		if res.IDTokenClaims, err = verifyIDToken(ctx, v.stored, st.IDToken, ""); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res.IDToken = st.IDToken
	}
	return res, nil
}

// verifyIDToken verifies raw and returns its claims. An empty nonce is not
// checked.
func verifyIDToken(ctx context.Context, v *oidc.IDTokenVerifier, raw, nonce string) (map[string]interface{}, error) {
	const op = "flow.verifyIDToken"
	idt, err := v.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrIdTokenVerificationFailed)
	}
	if nonce != "" && idt.Nonce != nonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	var claims map[string]interface{}
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to read id_token claims: %w", op, err)
	}
	return claims, nil
}

func saveResult(logger hclog.Logger, path string, res *Result) {
	if err := saveTokenFile(path, &storedToken{Token: res.Token, IDToken: res.IDToken}); err != nil {
		logger.Warn("unable to store token", "file", path, "error", err)
	}
}

func newID() (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", err, ErrIdGeneratorFailed)
	}
	return id, nil
}

func withOpenIDScope(scopes []string) []string {
	for _, s := range scopes {
		if s == oidc.ScopeOpenID {
			return scopes
		}
	}
	return append([]string{oidc.ScopeOpenID}, scopes...)
}
