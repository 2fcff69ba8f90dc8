// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLocalServer records the requests a Handler makes to the local server.
type testLocalServer struct {
	*httptest.Server

	mu          sync.Mutex
	codeStatus  int
	codeBody    string
	shutdownErr bool
	codeReqs    []*testRequest
	shutdownCh  chan *testRequest
}

type testRequest struct {
	method  string
	headers http.Header
	body    string
}

func newTestLocalServer(t *testing.T) *testLocalServer {
	t.Helper()
	s := &testLocalServer{
		codeStatus: http.StatusOK,
		codeBody:   `{"success":true}`,
		shutdownCh: make(chan *testRequest, 8),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(DefaultCodePath, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		s.mu.Lock()
		s.codeReqs = append(s.codeReqs, &testRequest{method: req.Method, headers: req.Header.Clone(), body: string(body)})
		status, respBody := s.codeStatus, s.codeBody
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	})
	mux.HandleFunc(DefaultShutdownPath, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		s.mu.Lock()
		fail := s.shutdownErr
		s.mu.Unlock()
		s.shutdownCh <- &testRequest{method: req.Method, headers: req.Header.Clone(), body: string(body)}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("Server shutting down..."))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *testLocalServer) setCodeResponse(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeStatus, s.codeBody = status, body
}

func (s *testLocalServer) codeRequests() []*testRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*testRequest(nil), s.codeReqs...)
}

func (s *testLocalServer) waitShutdown(t *testing.T) *testRequest {
	t.Helper()
	select {
	case r := <-s.shutdownCh:
		return r
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for shutdown request")
		return nil
	}
}

func TestNewHandler(t *testing.T) {
	page := NewTestPage("http://localhost/auth")
	tests := []struct {
		name      string
		baseURL   string
		loc       Location
		win       Window
		alerter   Alerter
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", baseURL: "http://localhost:8080", loc: page, win: page, alerter: page},
		{name: "empty-url", loc: page, win: page, alerter: page, wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "relative-url", baseURL: "/auth", loc: page, win: page, alerter: page, wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "bad-url", baseURL: "http://[::1", loc: page, win: page, alerter: page, wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "nil-location", baseURL: "http://localhost", win: page, alerter: page, wantErr: true, wantIsErr: ErrNilParameter},
		{name: "nil-window", baseURL: "http://localhost", loc: page, alerter: page, wantErr: true, wantIsErr: ErrNilParameter},
		{name: "nil-alerter", baseURL: "http://localhost", loc: page, win: page, wantErr: true, wantIsErr: ErrNilParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewHandler(tt.baseURL, tt.loc, tt.win, tt.alerter)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.Equal("http://localhost:8080/auth/code", got.codeURL)
			assert.Equal("http://localhost:8080/shutdown", got.shutdownURL)
			assert.NotNil(got.client)
		})
	}
	t.Run("custom-paths", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewHandler("http://localhost:8080/ignored", page, page, page,
			WithCodePath("/v1/code"), WithShutdownPath("/v1/stop"), WithHTTPClient(http.DefaultClient))
		require.NoError(err)
		assert.Equal("http://localhost:8080/v1/code", got.codeURL)
		assert.Equal("http://localhost:8080/v1/stop", got.shutdownURL)
		assert.Same(http.DefaultClient, got.client)
	})
}

func TestHandler_Initialize(t *testing.T) {
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	page := NewTestPage("http://localhost/auth")
	h, err := NewHandler("http://localhost", page, page, page)
	require.NoError(err)

	err = h.Initialize(ctx, nil)
	assert.ErrorIs(err, ErrNilParameter)

	require.NoError(h.Initialize(ctx, page))
	err = h.Initialize(ctx, page)
	assert.ErrorIs(err, ErrAlreadyInitialized)

	page.mu.Lock()
	defer page.mu.Unlock()
	assert.Len(page.listeners, 1)
}

func TestHandler_Complete(t *testing.T) {
	ctx := context.Background()
	const href = "https://host/page?code=abc&state=xyz"

	tests := []struct {
		name         string
		codeStatus   int
		codeBody     string
		shutdownErr  bool
		stopServer   bool
		wantErr      bool
		wantIsErr    error
		wantShutdown bool
	}{
		{name: "success", codeStatus: http.StatusOK, codeBody: `{"success":true}`, wantShutdown: true},
		{name: "no-content", codeStatus: http.StatusNoContent, wantShutdown: true},
		{name: "shutdown-fails", codeStatus: http.StatusOK, codeBody: `{}`, shutdownErr: true, wantShutdown: true},
		{name: "server-error", codeStatus: http.StatusInternalServerError, codeBody: `{"error":"boom"}`, wantErr: true, wantIsErr: ErrUnexpectedStatus},
		{name: "bad-request", codeStatus: http.StatusBadRequest, codeBody: `{}`, wantErr: true, wantIsErr: ErrUnexpectedStatus},
		{name: "not-json", codeStatus: http.StatusOK, codeBody: "ok", wantErr: true, wantIsErr: ErrInvalidResponse},
		{name: "empty-body", codeStatus: http.StatusOK, codeBody: "", wantErr: true, wantIsErr: ErrInvalidResponse},
		{name: "transport-error", stopServer: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			srv := newTestLocalServer(t)
			srv.setCodeResponse(tt.codeStatus, tt.codeBody)
			srv.shutdownErr = tt.shutdownErr
			page := NewTestPage(href)

			h, err := NewHandler(srv.URL, page, page, page, WithLogger(hclog.New(&hclog.LoggerOptions{Level: hclog.Error})))
			require.NoError(err)
			if tt.stopServer {
				srv.Close()
			}

			err = h.Complete(ctx, ParseQuery(page.Href()))
			if tt.wantErr {
				require.Error(err)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				select {
				case msg := <-page.Alerts():
					assert.Equal(AlertMessage, msg)
				default:
					assert.Fail("expected an alert")
				}
				assert.Equal(0, page.CloseCount())
				assert.Len(srv.shutdownCh, 0)
				return
			}
			require.NoError(err)
			assert.Equal(1, page.CloseCount())
			assert.Len(page.Alerts(), 0)

			reqs := srv.codeRequests()
			require.Len(reqs, 1)
			assert.Equal(http.MethodPost, reqs[0].method)
			assert.Equal("application/json", reqs[0].headers.Get("Content-Type"))
			assert.Equal("application/json", reqs[0].headers.Get("Accept"))
			assert.Equal(`{"code":"abc","state":"xyz"}`, reqs[0].body)

			if tt.wantShutdown {
				sr := srv.waitShutdown(t)
				assert.Equal(http.MethodPost, sr.method)
				assert.Empty(sr.body)
			}
		})
	}
}

func TestHandler_Click(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newTestLocalServer(t)
		page := NewTestPage("https://host/page?code=abc&state=xyz")
		h, err := NewHandler(srv.URL, page, page, page)
		require.NoError(err)
		require.NoError(h.Initialize(ctx, page))

		ev := page.Click()
		assert.True(ev.DefaultPrevented())
		select {
		case <-page.Closed():
		case <-time.After(5 * time.Second):
			require.FailNow("timed out waiting for the window to close")
		}
		srv.waitShutdown(t)
		assert.Len(page.Alerts(), 0)
	})

	t.Run("failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newTestLocalServer(t)
		srv.setCodeResponse(http.StatusInternalServerError, "")
		page := NewTestPage("https://host/page?code=abc&state=xyz")
		h, err := NewHandler(srv.URL, page, page, page)
		require.NoError(err)
		require.NoError(h.Initialize(ctx, page))

		ev := page.Click()
		assert.True(ev.DefaultPrevented())
		select {
		case msg := <-page.Alerts():
			assert.Equal(AlertMessage, msg)
		case <-time.After(5 * time.Second):
			require.FailNow("timed out waiting for the alert")
		}
		assert.Equal(0, page.CloseCount())
		assert.Len(srv.shutdownCh, 0)
	})

	t.Run("repeated", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newTestLocalServer(t)
		page := NewTestPage("https://host/page?code=abc")
		h, err := NewHandler(srv.URL, page, page, page)
		require.NoError(err)
		require.NoError(h.Initialize(ctx, page))

		page.Click()
		srv.waitShutdown(t)
		page.Click()
		srv.waitShutdown(t)

		assert.Eventually(func() bool { return page.CloseCount() == 2 }, 5*time.Second, 10*time.Millisecond)
		reqs := srv.codeRequests()
		require.Len(reqs, 2)
		assert.Equal(reqs[0].body, reqs[1].body)
	})

	t.Run("nil-event", func(t *testing.T) {
		require := require.New(t)
		srv := newTestLocalServer(t)
		page := NewTestPage("https://host/page")
		h, err := NewHandler(srv.URL, page, page, page)
		require.NoError(err)
		h.Click(ctx, nil)
		srv.waitShutdown(t)
	})
}
