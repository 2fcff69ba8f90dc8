// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flow

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/localauth/localauth/browser"
)

// DefaultTimeout bounds a whole login, from opening the browser to the token
// exchange.
const DefaultTimeout = 2 * time.Minute

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// loginOptions is the set of available options for Login
type loginOptions struct {
	withLogger     hclog.Logger
	withOpener     browser.Opener
	withTimeout    time.Duration
	withHTTPClient *http.Client
	withTokenFile  string
}

// loginDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func loginDefaults() loginOptions {
	return loginOptions{
		withLogger:  hclog.NewNullLogger(),
		withOpener:  browser.Open,
		withTimeout: DefaultTimeout,
	}
}

// getLoginOpts gets the login defaults and applies the opt overrides passed in
func getLoginOpts(opt ...Option) loginOptions {
	opts := loginDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithOpener overrides how the authorization URL is shown to the user.
func WithOpener(fn browser.Opener) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok && fn != nil {
			o.withOpener = fn
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok && d > 0 {
			o.withTimeout = d
		}
	}
}

// WithHTTPClient provides the client used to reach the authorization server.
// It takes precedence over Config.CAPem.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithTokenFile keeps the login's token in path. A later Login reuses the
// stored token while it is valid, refreshes it once it has expired, and only
// opens the browser when neither works.
func WithTokenFile(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withTokenFile = path
		}
	}
}
