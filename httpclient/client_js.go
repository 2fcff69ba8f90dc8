// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build js && wasm

package httpclient

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// NewClient returns a client whose requests go through the browser's Fetch
// API. net/http only uses Fetch when the transport has no dial function, so
// the cleanhttp dialer is removed. The browser owns TLS, so caPEM must be
// empty.
func NewClient(caPEM string) (*http.Client, error) {
	const op = "httpclient.NewClient"
	if caPEM != "" {
		return nil, fmt.Errorf("%s: custom CA certificates: %w", op, ErrUnsupported)
	}
	tr := cleanhttp.DefaultPooledTransport()
	tr.DialContext = nil
	tr.Proxy = nil
	return &http.Client{Transport: tr}, nil
}
