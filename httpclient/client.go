// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package httpclient builds the http.Client used to talk to the local server
// and to the authorization server.
//
// NewClient has two builds. The native one uses a pooled cleanhttp transport
// and can trust an extra CA. The js/wasm one returns a client whose transport
// has no dialer, so net/http sends its requests through the browser's Fetch
// API.
package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
	ErrUnsupported           = errors.New("unsupported on this platform")
)

// ClientContext returns a new Context that carries the provided HTTP client.
// It uses the same context key as github.com/coreos/go-oidc and
// golang.org/x/oauth2, so the returned context works for both packages.
func ClientContext(ctx context.Context, client *http.Client) context.Context {
	return oidc.ClientContext(ctx, client)
}
