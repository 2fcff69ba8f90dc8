// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultCodePath is the local server path that receives the query
	// parameters.
	DefaultCodePath = "/auth/code"

	// DefaultShutdownPath is the local server path that stops the server.
	DefaultShutdownPath = "/shutdown"
)

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

// handlerOptions is the set of available options for Handler functions
type handlerOptions struct {
	withHTTPClient   *http.Client
	withLogger       hclog.Logger
	withCodePath     string
	withShutdownPath string
}

// handlerDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func handlerDefaults() handlerOptions {
	return handlerOptions{
		withLogger:       hclog.NewNullLogger(),
		withCodePath:     DefaultCodePath,
		withShutdownPath: DefaultShutdownPath,
	}
}

// getHandlerOpts gets the handler defaults and applies the opt overrides passed in
func getHandlerOpts(opt ...Option) handlerOptions {
	opts := handlerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithHTTPClient provides an optional http.Client used for both requests. The
// default is httpclient.NewClient, which uses the Fetch API in js/wasm builds.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithCodePath overrides DefaultCodePath.
func WithCodePath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withCodePath = p
		}
	}
}

// WithShutdownPath overrides DefaultShutdownPath.
func WithShutdownPath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withShutdownPath = p
		}
	}
}
