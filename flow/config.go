// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flow

import (
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

// Config describes the client and the authorization server of a login.
//
// Either Issuer (an OIDC issuer, whose endpoints are discovered and whose
// id_token is verified) or both AuthURL and TokenURL (a plain OAuth2
// authorization server) must be set.
type Config struct {
	ClientID     string
	ClientSecret string

	Issuer   string
	AuthURL  string
	TokenURL string

	// Scopes are requested in addition to "openid", which is always
	// requested from an Issuer.
	Scopes []string

	// CAPem is an optional CA certificate PEM for the authorization server.
	CAPem string

	// Addr is the local server's listen address; it defaults to a random
	// loopback port.
	Addr string

	// StaticDir holds the page assets the local server serves:
	// server.WasmExecFile and server.WasmFile (the examples/wasm build).
	StaticDir string
}

// Validate returns every problem with the Config.
func (c *Config) Validate() error {
	const op = "flow.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var retErr *multierror.Error
	if c.ClientID == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.StaticDir == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: static dir is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.Issuer != "" && (c.AuthURL != "" || c.TokenURL != ""):
		retErr = multierror.Append(retErr, fmt.Errorf("%s: issuer cannot be combined with auth and token URLs: %w", op, ErrInvalidParameter))
	case c.Issuer != "":
		if err := validURL(c.Issuer); err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: issuer: %w", op, err))
		}
	default:
		if c.AuthURL == "" || c.TokenURL == "" {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: missing issuer or auth and token URLs: %w", op, ErrInvalidParameter))
			break
		}
		if err := validURL(c.AuthURL); err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: auth URL: %w", op, err))
		}
		if err := validURL(c.TokenURL); err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: token URL: %w", op, err))
		}
	}
	return retErr.ErrorOrNil()
}

func validURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("unable to parse %q: %w", s, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL: %w", s, ErrInvalidParameter)
	}
	return nil
}
