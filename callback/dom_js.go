// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build js && wasm

package callback

import (
	"fmt"
	"syscall/js"
)

// Document implements Location, Window, Alerter and Control over the
// browser's DOM.
type Document struct {
	global  js.Value
	control js.Value
	funcs   []js.Func
}

var (
	_ Location = (*Document)(nil)
	_ Window   = (*Document)(nil)
	_ Alerter  = (*Document)(nil)
	_ Control  = (*Document)(nil)
)

// BindDocument finds the close control by element id in the current document.
func BindDocument(closeControlID string) (*Document, error) {
	const op = "callback.BindDocument"
	if closeControlID == "" {
		return nil, fmt.Errorf("%s: close control id is empty: %w", op, ErrInvalidParameter)
	}
	g := js.Global()
	el := g.Get("document").Call("getElementById", closeControlID)
	if el.IsNull() || el.IsUndefined() {
		return nil, fmt.Errorf("%s: element %q: %w", op, closeControlID, ErrNotFound)
	}
	return &Document{global: g, control: el}, nil
}

func (d *Document) Href() string { return d.global.Get("location").Get("href").String() }

// Origin is the page origin, which is the local server's base URL.
func (d *Document) Origin() string { return d.global.Get("location").Get("origin").String() }

func (d *Document) Close() { d.global.Call("close") }

func (d *Document) Alert(msg string) { d.global.Call("alert", msg) }

func (d *Document) OnClick(fn func(Event)) {
	f := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		ev := jsEvent{}
		if len(args) > 0 {
			ev.v = args[0]
		}
		fn(ev)
		return nil
	})
	d.funcs = append(d.funcs, f)
	d.control.Call("addEventListener", "click", f)
}

// Release frees the listeners registered by OnClick.
func (d *Document) Release() {
	for _, f := range d.funcs {
		d.control.Call("removeEventListener", "click", f)
		f.Release()
	}
	d.funcs = nil
}

type jsEvent struct {
	v js.Value
}

func (e jsEvent) PreventDefault() {
	if e.v.Truthy() {
		e.v.Call("preventDefault")
	}
}
