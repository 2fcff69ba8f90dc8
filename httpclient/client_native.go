// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !(js && wasm)

package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// NewClient returns a client on a pooled cleanhttp transport. A non-empty
// caPEM replaces the system roots for TLS connections.
func NewClient(caPEM string) (*http.Client, error) {
	const op = "httpclient.NewClient"
	tr := cleanhttp.DefaultPooledTransport()
	if caPEM != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(caPEM)) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCertificatePem)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}
	return &http.Client{Transport: tr}, nil
}
