// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/localauth/localauth/httpclient"
)

// AlertMessage is shown to the user when the query parameters could not be
// delivered to the local server.
const AlertMessage = "An error occurred.  Please restart script."

// Handler forwards the page's query parameters to the local server when the
// close control is clicked. On success it asks the server to shut down and
// closes the window; on failure it alerts the user and does nothing else.
//
// A Handler has no in-flight guard: clicking again while a request is
// outstanding starts a second, independent flow.
type Handler struct {
	codeURL     string
	shutdownURL string
	location    Location
	window      Window
	alerter     Alerter
	client      *http.Client
	logger      hclog.Logger
	initialized atomic.Bool
}

// NewHandler creates a Handler for the local server at baseURL (usually the
// page's origin). Supports the options: WithHTTPClient, WithLogger,
// WithCodePath, WithShutdownPath.
func NewHandler(baseURL string, loc Location, win Window, alerter Alerter, opt ...Option) (*Handler, error) {
	const op = "callback.NewHandler"
	switch {
	case baseURL == "":
		return nil, fmt.Errorf("%s: base URL is empty: %w", op, ErrInvalidParameter)
	case loc == nil:
		return nil, fmt.Errorf("%s: location is nil: %w", op, ErrNilParameter)
	case win == nil:
		return nil, fmt.Errorf("%s: window is nil: %w", op, ErrNilParameter)
	case alerter == nil:
		return nil, fmt.Errorf("%s: alerter is nil: %w", op, ErrNilParameter)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse base URL %q: %w", op, baseURL, ErrInvalidParameter)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base URL %q is not absolute: %w", op, baseURL, ErrInvalidParameter)
	}
	opts := getHandlerOpts(opt...)
	if opts.withHTTPClient == nil {
		c, err := httpclient.NewClient("")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts.withHTTPClient = c
	}
	return &Handler{
		codeURL:     base.ResolveReference(&url.URL{Path: opts.withCodePath}).String(),
		shutdownURL: base.ResolveReference(&url.URL{Path: opts.withShutdownPath}).String(),
		location:    loc,
		window:      win,
		alerter:     alerter,
		client:      opts.withHTTPClient,
		logger:      opts.withLogger.Named("callback"),
	}, nil
}

// Initialize binds the Handler to the close control. It must be called once
// per page load, after the page is ready; later calls return
// ErrAlreadyInitialized.
func (h *Handler) Initialize(ctx context.Context, c Control) error {
	const op = "callback.(Handler).Initialize"
	if c == nil {
		return fmt.Errorf("%s: control is nil: %w", op, ErrNilParameter)
	}
	if !h.initialized.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", op, ErrAlreadyInitialized)
	}
	c.OnClick(func(ev Event) { h.Click(ctx, ev) })
	return nil
}

// Click handles one click of the close control. It prevents the event's
// default action, parses the page URL and then returns while the flow
// continues in the background.
func (h *Handler) Click(ctx context.Context, ev Event) {
	if ev != nil {
		ev.PreventDefault()
	}
	params := ParseQuery(h.location.Href())
	go func() {
		_ = h.Complete(ctx, params)
	}()
}

// Complete runs the flow for params and blocks until the first request
// finishes. The shutdown request is not waited on and its outcome is only
// logged.
func (h *Handler) Complete(ctx context.Context, params Params) error {
	const op = "callback.(Handler).Complete"
	if err := h.postCode(ctx, params); err != nil {
		h.logger.Error("unable to deliver query parameters", "error", err)
		h.alerter.Alert(AlertMessage)
		return fmt.Errorf("%s: %w", op, err)
	}
	h.shutdown(ctx)
	h.window.Close()
	return nil
}

func (h *Handler) postCode(ctx context.Context, params Params) error {
	const op = "callback.(Handler).postCode"
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s: unable to encode parameters: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.codeURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %s: %w", op, resp.Status, ErrUnexpectedStatus)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if !json.Valid(contents) {
		return fmt.Errorf("%s: response is not JSON: %w", op, ErrInvalidResponse)
	}
	h.logger.Debug("query parameters delivered", "keys", params.Len())
	return nil
}

// shutdown issues the shutdown request without waiting for it. The request
// outlives ctx's cancellation since the window is closed right after.
func (h *Handler) shutdown(ctx context.Context) {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, h.shutdownURL, nil)
	if err != nil {
		h.logger.Debug("unable to create shutdown request", "error", err)
		return
	}
	go func() {
		resp, err := h.client.Do(req)
		if err != nil {
			h.logger.Debug("shutdown request failed", "error", err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}
