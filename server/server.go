// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package server provides the local HTTP server of a local authentication
// flow. It serves the page a provider redirects to, receives the page's query
// parameters and stops when the page asks it to.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/localauth/localauth/callback"
)

const (
	// PagePath serves the page the provider redirects to.
	PagePath = "/auth"

	// CodePath receives the page's query parameters as JSON.
	CodePath = callback.DefaultCodePath

	// ShutdownPath stops the server.
	ShutdownPath = callback.DefaultShutdownPath

	// StaticPath serves the page assets given by WithAssets or WithStaticDir.
	StaticPath = "/static/"

	// WasmExecFile and WasmFile are the page assets the page loads from
	// StaticPath: the Go js/wasm support script and the examples/wasm build.
	WasmExecFile = "wasm_exec.js"
	WasmFile     = "auth.wasm"

	maxBodyBytes      = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

//go:embed templates/auth.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/auth.html"))

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Uri         string `json:"error_uri,omitempty"`
}

type result struct {
	params  callback.Params
	authErr *AuthenErrorResponse
}

// Server is the local server. Create it with New, then Start it and Wait for
// the page's query parameters.
type Server struct {
	logger         hclog.Logger
	listener       net.Listener
	host           string
	srv            *http.Server
	expectedState  string
	pageTitle      string
	closeControlID string

	resultOnce   sync.Once
	resultCh     chan result
	errCh        chan error
	startOnce    sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
	done         chan struct{}
}

// New creates a Server listening on its address. Supports the options:
// WithAddr, WithListener, WithLogger, WithExpectedState, WithPageTitle,
// WithCloseControlID, WithAssets, WithStaticDir. Page assets are required.
func New(opt ...Option) (*Server, error) {
	const op = "server.New"
	opts := getServerOpts(opt...)
	if err := validateOpts(opts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l := opts.withListener
	if l == nil {
		if opts.withAddr == "" {
			opts.withAddr = DefaultAddr
		}
		var err error
		if l, err = net.Listen("tcp", opts.withAddr); err != nil {
			return nil, fmt.Errorf("%s: unable to listen on %q: %w", op, opts.withAddr, err)
		}
	}
	host := "localhost"
	if opts.withAddr != "" {
		if h, _, err := net.SplitHostPort(opts.withAddr); err == nil && h != "" {
			host = h
		}
	}

	s := &Server{
		logger:         opts.withLogger.Named("server"),
		listener:       l,
		host:           host,
		expectedState:  opts.withExpectedState,
		pageTitle:      opts.withPageTitle,
		closeControlID: opts.withCloseControlID,
		resultCh:       make(chan result, 1),
		errCh:          make(chan error, 1),
		done:           make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(PagePath, s.handlePage)
	mux.HandleFunc(CodePath, s.handleCode)
	mux.HandleFunc(ShutdownPath, s.handleShutdown)
	mux.Handle(StaticPath, http.StripPrefix(StaticPath, http.FileServer(http.FS(opts.withAssets))))
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
	return s, nil
}

func validateOpts(opts serverOptions) error {
	var retErr *multierror.Error
	if opts.withListener != nil && opts.withAddr != "" {
		retErr = multierror.Append(retErr, fmt.Errorf("listener and address are both set: %w", ErrInvalidParameter))
	}
	if opts.withPageTitle == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("page title is empty: %w", ErrInvalidParameter))
	}
	if opts.withCloseControlID == "" {
		retErr = multierror.Append(retErr, fmt.Errorf("close control id is empty: %w", ErrInvalidParameter))
	}
	assets := opts.withAssets
	if opts.withStaticDir != "" {
		fi, err := os.Stat(opts.withStaticDir)
		switch {
		case err != nil:
			retErr = multierror.Append(retErr, fmt.Errorf("static dir %q: %w", opts.withStaticDir, err))
			assets = nil
		case !fi.IsDir():
			retErr = multierror.Append(retErr, fmt.Errorf("static dir %q is not a directory: %w", opts.withStaticDir, ErrInvalidParameter))
			assets = nil
		}
	}
	switch {
	case opts.withAssets == nil:
		retErr = multierror.Append(retErr, fmt.Errorf("page assets are missing, use WithAssets or WithStaticDir: %w", ErrInvalidParameter))
	case assets != nil:
		for _, name := range []string{WasmExecFile, WasmFile} {
			if _, err := fs.Stat(assets, name); err != nil {
				retErr = multierror.Append(retErr, fmt.Errorf("page asset %q: %w", name, err))
			}
		}
	}
	return retErr.ErrorOrNil()
}

// Addr is the address the server listens on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// URL is the server's base URL, using the configured host name.
func (s *Server) URL() string {
	port := ""
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = strconv.Itoa(a.Port)
	} else if _, p, err := net.SplitHostPort(s.Addr()); err == nil {
		port = p
	}
	return "http://" + net.JoinHostPort(s.host, port)
}

// RedirectURL is the URL to register with the provider: the page's URL.
func (s *Server) RedirectURL() string { return s.URL() + PagePath }

// Start serves requests in the background. Calling it more than once has no
// effect.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		s.logger.Debug("starting", "addr", s.Addr())
		go func() {
			if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("serve failed", "error", err)
				s.errCh <- err
			}
		}()
	})
}

// Done is closed once the server has shut down.
func (s *Server) Done() <-chan struct{} { return s.done }

// Shutdown gracefully stops the server. It is safe to call more than once;
// later calls return the first call's result.
func (s *Server) Shutdown(ctx context.Context) error {
	const op = "server.(Server).Shutdown"
	s.shutdownOnce.Do(func() {
		s.logger.Debug("shutting down")
		if err := s.srv.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("%s: %w", op, err)
		}
		// Shutdown only closes listeners Serve has seen.
		_ = s.listener.Close()
		close(s.done)
	})
	return s.shutdownErr
}

// Wait blocks until the page delivers its query parameters, the provider
// reports an error, the server fails or stops, or ctx is done.
func (s *Server) Wait(ctx context.Context) (callback.Params, error) {
	const op = "server.(Server).Wait"
	select {
	case r := <-s.resultCh:
		if r.authErr != nil {
			return callback.Params{}, fmt.Errorf("%s: provider returned %q: %s: %w", op, r.authErr.Error, r.authErr.Description, ErrLoginFailed)
		}
		return r.params, nil
	case err := <-s.errCh:
		return callback.Params{}, fmt.Errorf("%s: %w", op, err)
	case <-s.done:
		// a result may have been delivered just before the shutdown request
		select {
		case r := <-s.resultCh:
			if r.authErr != nil {
				return callback.Params{}, fmt.Errorf("%s: provider returned %q: %s: %w", op, r.authErr.Error, r.authErr.Description, ErrLoginFailed)
			}
			return r.params, nil
		default:
		}
		return callback.Params{}, fmt.Errorf("%s: %w", op, ErrServerClosed)
	case <-ctx.Done():
		return callback.Params{}, fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// deliver hands r to Wait. Only the first delivery counts.
func (s *Server) deliver(r result) bool {
	delivered := false
	s.resultOnce.Do(func() {
		s.resultCh <- r
		delivered = true
	})
	return delivered
}

type pageData struct {
	Title          string
	CloseControlID string
	WasmExecURL    string
	WasmURL        string
}

func (s *Server) handlePage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := pageData{
		Title:          s.pageTitle,
		CloseControlID: s.closeControlID,
		WasmExecURL:    StaticPath + WasmExecFile,
		WasmURL:        StaticPath + WasmFile,
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("unable to render page", "error", err)
	}
}

func (s *Server) handleCode(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, &AuthenErrorResponse{Error: "invalid_request", Description: "method not allowed"})
		return
	}
	if mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		s.logger.Warn("rejecting query parameters", "content_type", req.Header.Get("Content-Type"))
		writeJSON(w, http.StatusUnsupportedMediaType, &AuthenErrorResponse{Error: "invalid_request", Description: "content type must be application/json"})
		return
	}
	var params callback.Params
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&params); err != nil {
		s.logger.Warn("unable to decode query parameters", "error", err)
		writeJSON(w, http.StatusBadRequest, &AuthenErrorResponse{Error: "invalid_request", Description: "body is not a JSON object of strings"})
		return
	}

	if s.expectedState != "" && params.Value("state") != s.expectedState {
		s.logger.Warn("state mismatch", "error", ErrResponseStateInvalid)
		writeJSON(w, http.StatusBadRequest, &AuthenErrorResponse{Error: "invalid_request", Description: ErrResponseStateInvalid.Error()})
		return
	}
	if e := params.Value("error"); e != "" {
		authErr := &AuthenErrorResponse{
			Error:       e,
			Description: params.Value("error_description"),
			Uri:         params.Value("error_uri"),
		}
		s.logger.Error("provider returned an error", "error", authErr.Error, "description", authErr.Description)
		s.deliver(result{authErr: authErr})
		writeJSON(w, http.StatusBadRequest, authErr)
		return
	}
	if params.Value("code") == "" {
		s.logger.Warn("missing code", "error", ErrMissingCode)
		writeJSON(w, http.StatusBadRequest, &AuthenErrorResponse{Error: "invalid_request", Description: ErrMissingCode.Error()})
		return
	}

	if !s.deliver(result{params: params}) {
		s.logger.Debug("query parameters already received, dropping")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleShutdown(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server shutting down..."))
	go func() {
		if err := s.Shutdown(context.Background()); err != nil {
			s.logger.Error("shutdown failed", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
