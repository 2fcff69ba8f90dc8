// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"io/fs"
	"net"
	"os"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultAddr listens on a random loopback port.
	DefaultAddr = "localhost:0"

	// DefaultPageTitle is the title of the page served at PagePath.
	DefaultPageTitle = "Login Successful"

	// DefaultCloseControlID is the element id of the page's close control.
	DefaultCloseControlID = "closeButton"
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

// serverOptions is the set of available options for Server functions
type serverOptions struct {
	withAddr           string
	withListener       net.Listener
	withLogger         hclog.Logger
	withExpectedState  string
	withPageTitle      string
	withCloseControlID string
	withStaticDir      string
	withAssets         fs.FS
}

// serverDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:         hclog.NewNullLogger(),
		withPageTitle:      DefaultPageTitle,
		withCloseControlID: DefaultCloseControlID,
	}
}

// getServerOpts gets the server defaults and applies the opt overrides passed in
func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithAddr provides an optional host:port to listen on. The host is also used
// when building RedirectURL, so prefer the name registered with the provider
// (usually "localhost").
func WithAddr(addr string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withAddr = addr
		}
	}
}

// WithListener provides an already open listener. It cannot be combined with
// WithAddr.
func WithListener(l net.Listener) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withListener = l
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithExpectedState requires the posted "state" parameter to equal s.
func WithExpectedState(s string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withExpectedState = s
		}
	}
}

// WithPageTitle overrides DefaultPageTitle.
func WithPageTitle(title string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withPageTitle = title
		}
	}
}

// WithCloseControlID overrides DefaultCloseControlID.
func WithCloseControlID(id string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withCloseControlID = id
		}
	}
}

// WithAssets serves fsys under StaticPath. It must hold WasmExecFile and
// WasmFile; an embed.FS works well.
func WithAssets(fsys fs.FS) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withAssets = fsys
		}
	}
}

// WithStaticDir is WithAssets for a directory on disk.
func WithStaticDir(dir string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && dir != "" {
			o.withStaticDir = dir
			o.withAssets = os.DirFS(dir)
		}
	}
}
