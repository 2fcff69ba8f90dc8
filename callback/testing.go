// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"sync"
	"sync/atomic"
)

// TestPage is an in-memory page for tests: it implements Location, Window,
// Alerter and Control. It is concurrently safe.
type TestPage struct {
	mu        sync.Mutex
	href      string
	listeners []func(Event)

	closes    atomic.Int32
	closeOnce sync.Once
	closed    chan struct{}
	alerts    chan string
}

// NewTestPage creates a TestPage whose location is href.
func NewTestPage(href string) *TestPage {
	return &TestPage{
		href:   href,
		closed: make(chan struct{}),
		alerts: make(chan string, 16),
	}
}

func (p *TestPage) Href() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.href
}

// SetHref changes the page location.
func (p *TestPage) SetHref(href string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.href = href
}

func (p *TestPage) Close() {
	p.closes.Add(1)
	p.closeOnce.Do(func() { close(p.closed) })
}

// Closed is closed the first time the window is closed.
func (p *TestPage) Closed() <-chan struct{} { return p.closed }

// CloseCount is the number of times Close was called.
func (p *TestPage) CloseCount() int { return int(p.closes.Load()) }

func (p *TestPage) Alert(msg string) {
	select {
	case p.alerts <- msg:
	default:
	}
}

// Alerts receives every alert shown (up to a small buffer).
func (p *TestPage) Alerts() <-chan string { return p.alerts }

func (p *TestPage) OnClick(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Click dispatches a click on the close control to every listener and returns
// the event.
func (p *TestPage) Click() *TestEvent {
	p.mu.Lock()
	listeners := make([]func(Event), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	ev := &TestEvent{}
	for _, fn := range listeners {
		fn(ev)
	}
	return ev
}

// TestEvent records whether PreventDefault was called.
type TestEvent struct {
	prevented atomic.Bool
}

func (e *TestEvent) PreventDefault() { e.prevented.Store(true) }

func (e *TestEvent) DefaultPrevented() bool { return e.prevented.Load() }
